package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// UserStore implements domain.UserStore.
type UserStore struct {
	db DBTX
}

func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, `
		SELECT id, loans_issued_count, loans_issued_resolved_count, loans_issued_defaulted_count,
			loans_taken_count, loans_taken_resolved_count, loans_taken_defaulted_count
		FROM users WHERE id = $1`, id,
	).Scan(
		&u.ID, &u.LoansIssuedCount, &u.LoansIssuedResolvedCount, &u.LoansIssuedDefaultedCount,
		&u.LoansTakenCount, &u.LoansTakenResolvedCount, &u.LoansTakenDefaultedCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (
			id, loans_issued_count, loans_issued_resolved_count, loans_issued_defaulted_count,
			loans_taken_count, loans_taken_resolved_count, loans_taken_defaulted_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.LoansIssuedCount, u.LoansIssuedResolvedCount, u.LoansIssuedDefaultedCount,
		u.LoansTakenCount, u.LoansTakenResolvedCount, u.LoansTakenDefaultedCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: create user %s: %w", u.ID, err)
	}
	return nil
}

func (s *UserStore) Update(ctx context.Context, u domain.User) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET
			loans_issued_count           = $2,
			loans_issued_resolved_count  = $3,
			loans_issued_defaulted_count = $4,
			loans_taken_count            = $5,
			loans_taken_resolved_count   = $6,
			loans_taken_defaulted_count  = $7
		WHERE id = $1`,
		u.ID, u.LoansIssuedCount, u.LoansIssuedResolvedCount, u.LoansIssuedDefaultedCount,
		u.LoansTakenCount, u.LoansTakenResolvedCount, u.LoansTakenDefaultedCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
