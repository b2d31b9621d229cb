package app

import (
	"context"
	"log/slog"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
	feedevm "github.com/Magnify-Cash/magnify-monorepo-sub001/internal/feed/evm"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/pipeline"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/projector"
)

// ProjectMode follows the chain head, applying finalized events as they
// arrive. It blocks until the context is cancelled or the projector halts on
// a fatal consistency error.
func (a *App) ProjectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting project mode")
	return a.runProjection(ctx, deps, 0)
}

// BackfillMode projects the configured block range and exits. Used to build
// a fresh database before switching the deployment to project mode.
func (a *App) BackfillMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backfill mode",
		slog.Uint64("start_block", a.cfg.Chain.StartBlock),
		slog.Uint64("end_block", a.cfg.Chain.EndBlock),
	)
	return a.runProjection(ctx, deps, a.cfg.Chain.EndBlock)
}

func (a *App) runProjection(ctx context.Context, deps *Dependencies, endBlock uint64) error {
	feed := feedevm.NewLogFeed(deps.Eth, deps.Decoder, feedevm.Config{
		StartBlock:    a.cfg.Chain.StartBlock,
		EndBlock:      endBlock,
		Confirmations: a.cfg.Chain.Confirmations,
		BatchSize:     a.cfg.Chain.BatchSize,
		PollInterval:  a.cfg.Chain.PollInterval.Duration,
	}, a.logger)

	// Resume from the durable checkpoint; the checkpoint block itself is
	// rescanned and its already-applied events are skipped downstream.
	if cp, ok, err := deps.Store.Checkpoint(ctx); err != nil {
		return err
	} else if ok {
		feed.SetStart(cp.Block)
	}

	// A nil *Archiver must stay a nil interface inside the projector.
	var sink domain.EventSink
	if deps.Archiver != nil {
		sink = deps.Archiver
	}

	p := projector.New(deps.Store, deps.Meta, sink, deps.Notifier, a.logger)
	orch := pipeline.NewOrchestrator(p, feed, deps.Archiver, a.logger)
	return orch.Run(ctx)
}
