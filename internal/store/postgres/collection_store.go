package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// NftCollectionStore implements domain.NftCollectionStore.
type NftCollectionStore struct {
	db DBTX
}

func (s *NftCollectionStore) Get(ctx context.Context, id string) (domain.NftCollection, error) {
	var col domain.NftCollection
	err := s.db.QueryRow(ctx,
		`SELECT id, is_erc1155, active_loan_configs_count FROM nft_collections WHERE id = $1`, id,
	).Scan(&col.ID, &col.IsErc1155, &col.ActiveLoanConfigsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NftCollection{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.NftCollection{}, fmt.Errorf("postgres: get collection %s: %w", id, err)
	}
	return col, nil
}

func (s *NftCollectionStore) Create(ctx context.Context, col domain.NftCollection) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO nft_collections (id, is_erc1155, active_loan_configs_count)
		 VALUES ($1, $2, $3)`,
		col.ID, col.IsErc1155, col.ActiveLoanConfigsCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: create collection %s: %w", col.ID, err)
	}
	return nil
}

func (s *NftCollectionStore) Update(ctx context.Context, col domain.NftCollection) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE nft_collections SET
			is_erc1155                = $2,
			active_loan_configs_count = $3,
			updated_at                = NOW()
		WHERE id = $1`,
		col.ID, col.IsErc1155, col.ActiveLoanConfigsCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: update collection %s: %w", col.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NftCollectionStore) List(ctx context.Context) ([]domain.NftCollection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, is_erc1155, active_loan_configs_count FROM nft_collections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collections: %w", err)
	}
	defer rows.Close()

	var cols []domain.NftCollection
	for rows.Next() {
		var col domain.NftCollection
		if err := rows.Scan(&col.ID, &col.IsErc1155, &col.ActiveLoanConfigsCount); err != nil {
			return nil, fmt.Errorf("postgres: scan collection: %w", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list collections rows: %w", err)
	}
	return cols, nil
}
