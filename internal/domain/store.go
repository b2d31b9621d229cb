package domain

import "context"

// ProtocolStore persists the protocol singleton.
type ProtocolStore interface {
	Get(ctx context.Context) (ProtocolInfo, error)
	Create(ctx context.Context, info ProtocolInfo) error
	Update(ctx context.Context, info ProtocolInfo) error
}

// Erc20Store persists funding currency metadata.
type Erc20Store interface {
	Get(ctx context.Context, id string) (Erc20, error)
	Create(ctx context.Context, token Erc20) error
	List(ctx context.Context) ([]Erc20, error)
}

// NftCollectionStore persists collateral collection records.
type NftCollectionStore interface {
	Get(ctx context.Context, id string) (NftCollection, error)
	Create(ctx context.Context, col NftCollection) error
	Update(ctx context.Context, col NftCollection) error
	List(ctx context.Context) ([]NftCollection, error)
}

// LendingDeskStore persists desks and answers the derived currency queries
// the freeze bookkeeping and the resolver layer need.
type LendingDeskStore interface {
	Get(ctx context.Context, id uint64) (LendingDesk, error)
	Create(ctx context.Context, desk LendingDesk) error
	Update(ctx context.Context, desk LendingDesk) error
	ListByErc20(ctx context.Context, erc20 string) ([]LendingDesk, error)
	CountActiveByErc20(ctx context.Context, erc20 string) (int64, error)
}

// LoanConfigStore persists per-collection lending terms. Reverse
// relationships (configs of a desk, active configs of a collection) are
// indexed queries over the primary rows, never stored arrays.
type LoanConfigStore interface {
	Get(ctx context.Context, deskID uint64, collection string) (LoanConfig, error)
	Upsert(ctx context.Context, cfg LoanConfig) error
	Delete(ctx context.Context, deskID uint64, collection string) error
	ListByDesk(ctx context.Context, deskID uint64) ([]LoanConfig, error)
	CountActiveByCollection(ctx context.Context, collection string) (int64, error)
}

// LoanStore persists loans.
type LoanStore interface {
	Get(ctx context.Context, id uint64) (Loan, error)
	Create(ctx context.Context, loan Loan) error
	Update(ctx context.Context, loan Loan) error
	ListByDesk(ctx context.Context, deskID uint64) ([]Loan, error)
	ListByBorrower(ctx context.Context, borrower string) ([]Loan, error)
}

// UserStore persists per-address stats.
type UserStore interface {
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
}

// EntityTx is the write surface of a single atomic unit of work. The
// projector applies exactly one event per EntityTx and records the event's
// position in the same commit, so a crash can never leave state and
// checkpoint disagreeing.
type EntityTx interface {
	Protocol() ProtocolStore
	Erc20s() Erc20Store
	Collections() NftCollectionStore
	Desks() LendingDeskStore
	LoanConfigs() LoanConfigStore
	Loans() LoanStore
	Users() UserStore

	SetCheckpoint(ctx context.Context, pos Position) error
}

// Store is the entity store boundary. There is exactly one writer (the
// projector); concurrent readers observe committed snapshots only.
type Store interface {
	// Checkpoint returns the position of the last committed event. The
	// second return is false before any event has been committed.
	Checkpoint(ctx context.Context) (Position, bool, error)

	// Apply runs fn inside one atomic unit of work. Either every write fn
	// performed is committed, or none are.
	Apply(ctx context.Context, fn func(tx EntityTx) error) error
}
