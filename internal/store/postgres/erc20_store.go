package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// Erc20Store implements domain.Erc20Store. Rows are write-once: token
// metadata is immutable after the lazy creation.
type Erc20Store struct {
	db DBTX
}

func (s *Erc20Store) Get(ctx context.Context, id string) (domain.Erc20, error) {
	var token domain.Erc20
	err := s.db.QueryRow(ctx,
		`SELECT id, name, symbol, decimals FROM erc20s WHERE id = $1`, id,
	).Scan(&token.ID, &token.Name, &token.Symbol, &token.Decimals)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Erc20{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Erc20{}, fmt.Errorf("postgres: get erc20 %s: %w", id, err)
	}
	return token, nil
}

func (s *Erc20Store) Create(ctx context.Context, token domain.Erc20) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO erc20s (id, name, symbol, decimals) VALUES ($1, $2, $3, $4)`,
		token.ID, token.Name, token.Symbol, token.Decimals,
	)
	if err != nil {
		return fmt.Errorf("postgres: create erc20 %s: %w", token.ID, err)
	}
	return nil
}

func (s *Erc20Store) List(ctx context.Context) ([]domain.Erc20, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, symbol, decimals FROM erc20s ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list erc20s: %w", err)
	}
	defer rows.Close()

	var tokens []domain.Erc20
	for rows.Next() {
		var token domain.Erc20
		if err := rows.Scan(&token.ID, &token.Name, &token.Symbol, &token.Decimals); err != nil {
			return nil, fmt.Errorf("postgres: scan erc20: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list erc20s rows: %w", err)
	}
	return tokens, nil
}
