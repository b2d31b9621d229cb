package domain

import "context"

// TokenMetadataSource reads ERC-20 metadata from the settlement layer. The
// lookup is synchronous and keyed by contract address; implementations cache
// the result since the fields are immutable. A failed fetch is fatal for the
// entity being created.
type TokenMetadataSource interface {
	Erc20Metadata(ctx context.Context, address string) (Erc20, error)
}

// EventFeed delivers finalized settlement-layer events in canonical order.
// Bounded feeds return ErrEndOfFeed once exhausted.
type EventFeed interface {
	Next(ctx context.Context) (Event, error)
}

// EventSink receives every successfully applied event, after its unit of
// work committed. Used for cold-storage archival; failures must not affect
// projection.
type EventSink interface {
	Record(ctx context.Context, ev Event)
}
