package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// LoanConfigStore implements domain.LoanConfigStore.
type LoanConfigStore struct {
	db DBTX
}

const loanConfigCols = `lending_desk_id, nft_collection, active,
	min_amount::text, max_amount::text, min_duration, max_duration, min_interest, max_interest`

func scanLoanConfig(row pgx.Row) (domain.LoanConfig, error) {
	var (
		c                    domain.LoanConfig
		minAmount, maxAmount string
	)
	err := row.Scan(
		&c.LendingDeskID, &c.NftCollection, &c.Active,
		&minAmount, &maxAmount, &c.MinDuration, &c.MaxDuration, &c.MinInterest, &c.MaxInterest,
	)
	if err != nil {
		return domain.LoanConfig{}, err
	}
	if c.MinAmount, err = numericToBig(minAmount); err != nil {
		return domain.LoanConfig{}, err
	}
	if c.MaxAmount, err = numericToBig(maxAmount); err != nil {
		return domain.LoanConfig{}, err
	}
	return c, nil
}

func (s *LoanConfigStore) Get(ctx context.Context, deskID uint64, collection string) (domain.LoanConfig, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+loanConfigCols+` FROM loan_configs
		 WHERE lending_desk_id = $1 AND nft_collection = $2`,
		deskID, collection)
	cfg, err := scanLoanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LoanConfig{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LoanConfig{}, fmt.Errorf("postgres: get loan config %d-%s: %w", deskID, collection, err)
	}
	return cfg, nil
}

func (s *LoanConfigStore) Upsert(ctx context.Context, cfg domain.LoanConfig) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO loan_configs (
			lending_desk_id, nft_collection, active,
			min_amount, max_amount, min_duration, max_duration, min_interest, max_interest
		) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9)
		ON CONFLICT (lending_desk_id, nft_collection) DO UPDATE SET
			active       = EXCLUDED.active,
			min_amount   = EXCLUDED.min_amount,
			max_amount   = EXCLUDED.max_amount,
			min_duration = EXCLUDED.min_duration,
			max_duration = EXCLUDED.max_duration,
			min_interest = EXCLUDED.min_interest,
			max_interest = EXCLUDED.max_interest,
			updated_at   = NOW()`,
		cfg.LendingDeskID, cfg.NftCollection, cfg.Active,
		bigToNumeric(cfg.MinAmount), bigToNumeric(cfg.MaxAmount),
		cfg.MinDuration, cfg.MaxDuration, cfg.MinInterest, cfg.MaxInterest,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert loan config %s: %w", cfg.ID(), err)
	}
	return nil
}

func (s *LoanConfigStore) Delete(ctx context.Context, deskID uint64, collection string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM loan_configs WHERE lending_desk_id = $1 AND nft_collection = $2`,
		deskID, collection)
	if err != nil {
		return fmt.Errorf("postgres: delete loan config %d-%s: %w", deskID, collection, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *LoanConfigStore) ListByDesk(ctx context.Context, deskID uint64) ([]domain.LoanConfig, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+loanConfigCols+` FROM loan_configs
		 WHERE lending_desk_id = $1 ORDER BY nft_collection`, deskID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list loan configs of desk %d: %w", deskID, err)
	}
	defer rows.Close()

	var configs []domain.LoanConfig
	for rows.Next() {
		cfg, err := scanLoanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan loan config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list loan configs rows: %w", err)
	}
	return configs, nil
}

func (s *LoanConfigStore) CountActiveByCollection(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM loan_configs WHERE nft_collection = $1 AND active`,
		collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active configs for %s: %w", collection, err)
	}
	return count, nil
}
