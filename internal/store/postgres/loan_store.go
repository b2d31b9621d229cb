package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// LoanStore implements domain.LoanStore.
type LoanStore struct {
	db DBTX
}

const loanCols = `id, lending_desk_id, status, borrower, lender, nft_collection,
	nft_id::text, amount::text, amount_paid_back::text, duration, interest_bps, start_time`

func scanLoan(row pgx.Row) (domain.Loan, error) {
	var (
		l                   domain.Loan
		status              string
		nftID, amount, paid string
	)
	err := row.Scan(
		&l.ID, &l.LendingDeskID, &status, &l.Borrower, &l.Lender, &l.NftCollection,
		&nftID, &amount, &paid, &l.Duration, &l.InterestBps, &l.StartTime,
	)
	if err != nil {
		return domain.Loan{}, err
	}
	l.Status = domain.LoanStatus(status)
	if l.NftID, err = numericToBig(nftID); err != nil {
		return domain.Loan{}, err
	}
	if l.Amount, err = numericToBig(amount); err != nil {
		return domain.Loan{}, err
	}
	if l.AmountPaidBack, err = numericToBig(paid); err != nil {
		return domain.Loan{}, err
	}
	return l, nil
}

func (s *LoanStore) Get(ctx context.Context, id uint64) (domain.Loan, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+loanCols+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Loan{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Loan{}, fmt.Errorf("postgres: get loan %d: %w", id, err)
	}
	return loan, nil
}

func (s *LoanStore) Create(ctx context.Context, loan domain.Loan) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO loans (
			id, lending_desk_id, status, borrower, lender, nft_collection,
			nft_id, amount, amount_paid_back, duration, interest_bps, start_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12)`,
		loan.ID, loan.LendingDeskID, string(loan.Status), loan.Borrower, loan.Lender, loan.NftCollection,
		bigToNumeric(loan.NftID), bigToNumeric(loan.Amount), bigToNumeric(loan.AmountPaidBack),
		loan.Duration, loan.InterestBps, loan.StartTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: create loan %d: %w", loan.ID, err)
	}
	return nil
}

func (s *LoanStore) Update(ctx context.Context, loan domain.Loan) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE loans SET
			status           = $2,
			borrower         = $3,
			lender           = $4,
			amount_paid_back = $5::numeric,
			updated_at       = NOW()
		WHERE id = $1`,
		loan.ID, string(loan.Status), loan.Borrower, loan.Lender, bigToNumeric(loan.AmountPaidBack),
	)
	if err != nil {
		return fmt.Errorf("postgres: update loan %d: %w", loan.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *LoanStore) ListByDesk(ctx context.Context, deskID uint64) ([]domain.Loan, error) {
	return s.list(ctx, `lending_desk_id = $1`, deskID)
}

func (s *LoanStore) ListByBorrower(ctx context.Context, borrower string) ([]domain.Loan, error) {
	return s.list(ctx, `borrower = $1`, borrower)
}

func (s *LoanStore) list(ctx context.Context, where string, arg any) ([]domain.Loan, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+loanCols+` FROM loans WHERE `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list loans rows: %w", err)
	}
	return loans, nil
}
