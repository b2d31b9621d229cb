package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// ProtocolStore implements domain.ProtocolStore.
type ProtocolStore struct {
	db DBTX
}

func (s *ProtocolStore) Get(ctx context.Context) (domain.ProtocolInfo, error) {
	var info domain.ProtocolInfo
	err := s.db.QueryRow(ctx, `
		SELECT owner, paused, loan_origination_fee_bps, platform_wallet,
			lending_desks_count, loans_count, nft_collections_count, erc20s_count
		FROM protocol_info WHERE id = 1`,
	).Scan(
		&info.Owner, &info.Paused, &info.LoanOriginationFeeBps, &info.PlatformWallet,
		&info.LendingDesksCount, &info.LoansCount, &info.NftCollectionsCount, &info.Erc20sCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProtocolInfo{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ProtocolInfo{}, fmt.Errorf("postgres: get protocol info: %w", err)
	}
	return info, nil
}

func (s *ProtocolStore) Create(ctx context.Context, info domain.ProtocolInfo) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO protocol_info (
			id, owner, paused, loan_origination_fee_bps, platform_wallet,
			lending_desks_count, loans_count, nft_collections_count, erc20s_count
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)`,
		info.Owner, info.Paused, info.LoanOriginationFeeBps, info.PlatformWallet,
		info.LendingDesksCount, info.LoansCount, info.NftCollectionsCount, info.Erc20sCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: create protocol info: %w", err)
	}
	return nil
}

func (s *ProtocolStore) Update(ctx context.Context, info domain.ProtocolInfo) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE protocol_info SET
			owner                    = $1,
			paused                   = $2,
			loan_origination_fee_bps = $3,
			platform_wallet          = $4,
			lending_desks_count      = $5,
			loans_count              = $6,
			nft_collections_count    = $7,
			erc20s_count             = $8,
			updated_at               = NOW()
		WHERE id = 1`,
		info.Owner, info.Paused, info.LoanOriginationFeeBps, info.PlatformWallet,
		info.LendingDesksCount, info.LoansCount, info.NftCollectionsCount, info.Erc20sCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: update protocol info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
