// Package pipeline wires the event feed, the projector and the archive flush
// loop into one supervised unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/Magnify-Cash/magnify-monorepo-sub001/internal/blob/s3"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/projector"
)

// Orchestrator runs the projection loop and its supporting goroutines.
type Orchestrator struct {
	projector *projector.Projector
	feed      domain.EventFeed
	archiver  *s3blob.Archiver // optional
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. archiver may be nil when cold
// storage is disabled.
func NewOrchestrator(p *projector.Projector, feed domain.EventFeed, archiver *s3blob.Archiver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		projector: p,
		feed:      feed,
		archiver:  archiver,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts the projector and, when configured, the archive flush loop as
// concurrent goroutines using an errgroup. The projector finishing for any
// reason cancels the shared context; a fatal projection error is returned to
// the caller, a clean shutdown or an exhausted bounded feed is not.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.projector.Run(ctx, o.feed)
		if err == nil || ctx.Err() != nil {
			return context.Canceled // stop the remaining goroutines
		}
		return fmt.Errorf("projector: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.InfoContext(ctx, "starting archive flush loop")
			err := o.archiver.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		o.logger.ErrorContext(ctx, "orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.InfoContext(ctx, "orchestrator stopped cleanly")
	return nil
}
