package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// LendingDeskStore implements domain.LendingDeskStore.
type LendingDeskStore struct {
	db DBTX
}

const deskCols = `id, erc20, owner, status,
	balance::text, loans_count, loans_defaulted_count, loans_resolved_count,
	net_liquidity_issued::text, net_profit::text, amount_borrowed::text`

func scanDesk(row pgx.Row) (domain.LendingDesk, error) {
	var (
		d                               domain.LendingDesk
		status                          string
		balance, issued, profit, borrow string
	)
	err := row.Scan(
		&d.ID, &d.Erc20, &d.Owner, &status,
		&balance, &d.LoansCount, &d.LoansDefaultedCount, &d.LoansResolvedCount,
		&issued, &profit, &borrow,
	)
	if err != nil {
		return domain.LendingDesk{}, err
	}
	d.Status = domain.DeskStatus(status)
	if d.Balance, err = numericToBig(balance); err != nil {
		return domain.LendingDesk{}, err
	}
	if d.NetLiquidityIssued, err = numericToBig(issued); err != nil {
		return domain.LendingDesk{}, err
	}
	if d.NetProfit, err = numericToBig(profit); err != nil {
		return domain.LendingDesk{}, err
	}
	if d.AmountBorrowed, err = numericToBig(borrow); err != nil {
		return domain.LendingDesk{}, err
	}
	return d, nil
}

func (s *LendingDeskStore) Get(ctx context.Context, id uint64) (domain.LendingDesk, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+deskCols+` FROM lending_desks WHERE id = $1`, id)
	desk, err := scanDesk(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LendingDesk{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LendingDesk{}, fmt.Errorf("postgres: get desk %d: %w", id, err)
	}
	return desk, nil
}

func (s *LendingDeskStore) Create(ctx context.Context, desk domain.LendingDesk) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO lending_desks (
			id, erc20, owner, status, balance,
			loans_count, loans_defaulted_count, loans_resolved_count,
			net_liquidity_issued, net_profit, amount_borrowed
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric)`,
		desk.ID, desk.Erc20, desk.Owner, string(desk.Status), bigToNumeric(desk.Balance),
		desk.LoansCount, desk.LoansDefaultedCount, desk.LoansResolvedCount,
		bigToNumeric(desk.NetLiquidityIssued), bigToNumeric(desk.NetProfit), bigToNumeric(desk.AmountBorrowed),
	)
	if err != nil {
		return fmt.Errorf("postgres: create desk %d: %w", desk.ID, err)
	}
	return nil
}

func (s *LendingDeskStore) Update(ctx context.Context, desk domain.LendingDesk) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE lending_desks SET
			erc20                 = $2,
			owner                 = $3,
			status                = $4,
			balance               = $5::numeric,
			loans_count           = $6,
			loans_defaulted_count = $7,
			loans_resolved_count  = $8,
			net_liquidity_issued  = $9::numeric,
			net_profit            = $10::numeric,
			amount_borrowed       = $11::numeric,
			updated_at            = NOW()
		WHERE id = $1`,
		desk.ID, desk.Erc20, desk.Owner, string(desk.Status), bigToNumeric(desk.Balance),
		desk.LoansCount, desk.LoansDefaultedCount, desk.LoansResolvedCount,
		bigToNumeric(desk.NetLiquidityIssued), bigToNumeric(desk.NetProfit), bigToNumeric(desk.AmountBorrowed),
	)
	if err != nil {
		return fmt.Errorf("postgres: update desk %d: %w", desk.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *LendingDeskStore) ListByErc20(ctx context.Context, erc20 string) ([]domain.LendingDesk, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+deskCols+` FROM lending_desks WHERE erc20 = $1 ORDER BY id`, erc20)
	if err != nil {
		return nil, fmt.Errorf("postgres: list desks by erc20 %s: %w", erc20, err)
	}
	defer rows.Close()

	var desks []domain.LendingDesk
	for rows.Next() {
		desk, err := scanDesk(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan desk: %w", err)
		}
		desks = append(desks, desk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list desks rows: %w", err)
	}
	return desks, nil
}

func (s *LendingDeskStore) CountActiveByErc20(ctx context.Context, erc20 string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM lending_desks WHERE erc20 = $1 AND status = $2`,
		erc20, string(domain.DeskStatusActive),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active desks for %s: %w", erc20, err)
	}
	return count, nil
}
