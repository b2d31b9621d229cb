// Package projector turns the ordered settlement-layer event stream into the
// materialized lending-protocol state. Each event is applied as one atomic
// unit of work: entity writes and the checkpoint advance commit together, so
// a restart can replay a redelivered range without corrupting state.
package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// Alerter pushes operator notifications. Satisfied by notify.Notifier.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Projector owns the single-writer projection loop.
type Projector struct {
	store   domain.Store
	meta    domain.TokenMetadataSource
	sink    domain.EventSink // optional
	alerter Alerter          // optional
	logger  *slog.Logger
	runID   string
}

// New creates a Projector. sink and alerter may be nil.
func New(store domain.Store, meta domain.TokenMetadataSource, sink domain.EventSink, alerter Alerter, logger *slog.Logger) *Projector {
	return &Projector{
		store:   store,
		meta:    meta,
		sink:    sink,
		alerter: alerter,
		logger:  logger.With(slog.String("component", "projector")),
		runID:   uuid.NewString(),
	}
}

// Run consumes events from the feed until the context is cancelled, the feed
// is exhausted (bounded feeds), or a fatal consistency error halts the
// projector. Events at or before the durable checkpoint are skipped as
// redelivery; within a session the feed must be strictly monotonic.
func (p *Projector) Run(ctx context.Context, feed domain.EventFeed) error {
	durable, haveDurable, err := p.store.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("projector: load checkpoint: %w", err)
	}

	p.logger.InfoContext(ctx, "projector starting",
		slog.String("run_id", p.runID),
		slog.Bool("have_checkpoint", haveDurable),
		slog.Uint64("checkpoint_block", durable.Block),
	)

	var (
		last     domain.Position
		haveLast bool
	)

	for {
		ev, err := feed.Next(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrEndOfFeed) {
				p.logger.InfoContext(ctx, "feed exhausted", slog.String("run_id", p.runID))
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("projector: feed: %w", err)
		}

		// Redelivered range after a restart: already committed, skip.
		if haveDurable && ev.Position.Cmp(durable) <= 0 {
			p.logger.DebugContext(ctx, "skipping replayed event",
				slog.String("kind", string(ev.Kind)),
				slog.Uint64("block", ev.Position.Block),
			)
			continue
		}

		// Within a session the order precondition is strict.
		if haveLast && ev.Position.Cmp(last) <= 0 {
			err := fmt.Errorf("projector: event %s at %d/%d/%d behind applied %d/%d/%d: %w",
				ev.Kind,
				ev.Position.Block, ev.Position.TxIndex, ev.Position.LogIndex,
				last.Block, last.TxIndex, last.LogIndex,
				domain.ErrOutOfOrder)
			p.halt(ctx, ev, err)
			return err
		}

		if err := p.store.Apply(ctx, func(tx domain.EntityTx) error {
			if err := p.apply(ctx, tx, ev); err != nil {
				return err
			}
			return tx.SetCheckpoint(ctx, ev.Position)
		}); err != nil {
			err = fmt.Errorf("projector: apply %s at block %d: %w", ev.Kind, ev.Position.Block, err)
			p.halt(ctx, ev, err)
			return err
		}

		last = ev.Position
		haveLast = true

		if p.sink != nil {
			p.sink.Record(ctx, ev)
		}
		p.notifyApplied(ctx, ev)
	}
}

// halt logs and alerts before the projector stops on a fatal error.
func (p *Projector) halt(ctx context.Context, ev domain.Event, err error) {
	p.logger.ErrorContext(ctx, "projector halting",
		slog.String("run_id", p.runID),
		slog.String("kind", string(ev.Kind)),
		slog.Uint64("block", ev.Position.Block),
		slog.String("error", err.Error()),
	)
	if p.alerter != nil {
		_ = p.alerter.Notify(ctx, "projector_halted", "Projector halted",
			fmt.Sprintf("run %s stopped at block %d: %v", p.runID, ev.Position.Block, err))
	}
}

// notifyApplied fires operator notifications for noteworthy applied events.
func (p *Projector) notifyApplied(ctx context.Context, ev domain.Event) {
	if p.alerter == nil {
		return
	}
	if pl, ok := ev.Payload.(domain.DefaultedLoanLiquidated); ok {
		_ = p.alerter.Notify(ctx, "loan_defaulted", "Loan defaulted",
			fmt.Sprintf("loan %d liquidated at block %d", pl.LoanID, ev.Position.Block))
	}
}
