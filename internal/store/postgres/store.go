package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// DBTX is the query surface shared by pgxpool.Pool and pgx.Tx, so every
// entity store works both inside a projector transaction and as a pool-backed
// read surface for the resolver layer.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store on a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the client's pool.
func NewStore(c *Client) *Store {
	return &Store{pool: c.Pool()}
}

// Checkpoint returns the position of the last committed event.
func (s *Store) Checkpoint(ctx context.Context) (domain.Position, bool, error) {
	var pos domain.Position
	err := s.pool.QueryRow(ctx,
		`SELECT block_number, tx_index, log_index FROM checkpoints WHERE id = 1`,
	).Scan(&pos.Block, &pos.TxIndex, &pos.LogIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("postgres: load checkpoint: %w", err)
	}
	return pos, true, nil
}

// Apply runs fn inside one transaction. Entity writes and the checkpoint
// advance commit together or not at all.
func (s *Store) Apply(ctx context.Context, fn func(tx domain.EntityTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&entityTx{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Read-side accessors for the resolver layer; pool-backed, so each query
// sees a committed snapshot.

func (s *Store) Protocol() domain.ProtocolStore { return &ProtocolStore{db: s.pool} }

func (s *Store) Erc20s() domain.Erc20Store { return &Erc20Store{db: s.pool} }

func (s *Store) Collections() domain.NftCollectionStore { return &NftCollectionStore{db: s.pool} }

func (s *Store) Desks() domain.LendingDeskStore { return &LendingDeskStore{db: s.pool} }

func (s *Store) LoanConfigs() domain.LoanConfigStore { return &LoanConfigStore{db: s.pool} }

func (s *Store) Loans() domain.LoanStore { return &LoanStore{db: s.pool} }

func (s *Store) Users() domain.UserStore { return &UserStore{db: s.pool} }

type entityTx struct {
	db pgx.Tx
}

func (t *entityTx) Protocol() domain.ProtocolStore { return &ProtocolStore{db: t.db} }

func (t *entityTx) Erc20s() domain.Erc20Store { return &Erc20Store{db: t.db} }

func (t *entityTx) Collections() domain.NftCollectionStore { return &NftCollectionStore{db: t.db} }

func (t *entityTx) Desks() domain.LendingDeskStore { return &LendingDeskStore{db: t.db} }

func (t *entityTx) LoanConfigs() domain.LoanConfigStore { return &LoanConfigStore{db: t.db} }

func (t *entityTx) Loans() domain.LoanStore { return &LoanStore{db: t.db} }

func (t *entityTx) Users() domain.UserStore { return &UserStore{db: t.db} }

func (t *entityTx) SetCheckpoint(ctx context.Context, pos domain.Position) error {
	_, err := t.db.Exec(ctx, `
		INSERT INTO checkpoints (id, block_number, tx_index, log_index, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			tx_index     = EXCLUDED.tx_index,
			log_index    = EXCLUDED.log_index,
			updated_at   = NOW()`,
		pos.Block, pos.TxIndex, pos.LogIndex,
	)
	if err != nil {
		return fmt.Errorf("postgres: set checkpoint: %w", err)
	}
	return nil
}
