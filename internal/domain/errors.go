package domain

import "errors"

var (
	// ErrNotFound is returned by store lookups when the entity does not
	// exist. Handlers treat it as a first-class branch: some operations
	// no-op on missing entities, others escalate.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInitialized marks a protocol initialization event that
	// arrives after the singleton was created. Such events are dropped.
	ErrAlreadyInitialized = errors.New("protocol already initialized")

	// ErrNotInitialized is returned when an event that requires the
	// protocol singleton arrives before it was created.
	ErrNotInitialized = errors.New("protocol not initialized")

	// ErrInvariantViolated marks a numeric consistency breach (negative
	// balance, payment past the loan amount). The projector halts on it
	// rather than clamping, because clamping would hide an upstream
	// inconsistency between the event source and the projection.
	ErrInvariantViolated = errors.New("invariant violated")

	// ErrTerminalState marks an event attempting a transition on an entity
	// whose lifecycle already ended. Such events are logged and dropped,
	// never applied.
	ErrTerminalState = errors.New("entity in terminal state")

	// ErrOutOfOrder is returned by the dispatcher when the feed delivers
	// an event at or behind a position it has already applied within the
	// same session.
	ErrOutOfOrder = errors.New("event out of order")

	// ErrMetadataFetch wraps failures of the on-chain token metadata
	// lookup. Fatal for the entity being created.
	ErrMetadataFetch = errors.New("token metadata fetch failed")

	// ErrEndOfFeed is returned by bounded feeds (backfill) once the last
	// event of the configured range has been delivered.
	ErrEndOfFeed = errors.New("end of feed")
)
