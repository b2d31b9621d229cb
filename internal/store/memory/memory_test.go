package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

func newDesk(id uint64, balance int64) domain.LendingDesk {
	return domain.LendingDesk{
		ID:                 id,
		Erc20:              "0xe1",
		Owner:              "0xa1",
		Status:             domain.DeskStatusActive,
		Balance:            big.NewInt(balance),
		NetLiquidityIssued: big.NewInt(0),
		NetProfit:          big.NewInt(0),
		AmountBorrowed:     big.NewInt(0),
	}
}

func TestApplyCommitsOnSuccess(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		if err := tx.Desks().Create(ctx, newDesk(1, 500)); err != nil {
			return err
		}
		return tx.SetCheckpoint(ctx, domain.Position{Block: 7, LogIndex: 3})
	}))

	desk, err := s.Desks().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), desk.Balance)

	cp, ok, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Position{Block: 7, LogIndex: 3}, cp)
}

func TestApplyRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Apply(ctx, func(tx domain.EntityTx) error {
		if err := tx.Desks().Create(ctx, newDesk(1, 500)); err != nil {
			return err
		}
		if err := tx.SetCheckpoint(ctx, domain.Position{Block: 7}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Desks().Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, ok, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "checkpoint must not survive a failed unit of work")
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		return tx.Desks().Create(ctx, newDesk(1, 500))
	}))

	// An accessor taken before a write keeps seeing the old snapshot.
	before := s.Desks()

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		desk, err := tx.Desks().Get(ctx, 1)
		if err != nil {
			return err
		}
		desk.Balance = big.NewInt(900)
		return tx.Desks().Update(ctx, desk)
	}))

	old, err := before.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), old.Balance)

	current, err := s.Desks().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900), current.Balance)
}

func TestGetReturnsDetachedCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		return tx.Desks().Create(ctx, newDesk(1, 500))
	}))

	desk, err := s.Desks().Get(ctx, 1)
	require.NoError(t, err)
	desk.Balance.SetInt64(-1)

	again, err := s.Desks().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), again.Balance, "mutating a read result must not touch committed state")
}

func TestNotFoundPaths(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Protocol().Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Erc20s().Get(ctx, "0xe1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Collections().Get(ctx, "0xf1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Desks().Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoanConfigs().Get(ctx, 1, "0xf1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Loans().Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Users().Get(ctx, "0xa1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.Apply(ctx, func(tx domain.EntityTx) error {
		return tx.Desks().Update(ctx, newDesk(1, 0))
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCountActiveByErc20(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		if err := tx.Desks().Create(ctx, newDesk(1, 0)); err != nil {
			return err
		}
		frozen := newDesk(2, 0)
		frozen.Status = domain.DeskStatusFrozen
		if err := tx.Desks().Create(ctx, frozen); err != nil {
			return err
		}
		other := newDesk(3, 0)
		other.Erc20 = "0xe2"
		return tx.Desks().Create(ctx, other)
	}))

	n, err := s.Desks().CountActiveByErc20(ctx, "0xe1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoanConfigLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	cfg := domain.LoanConfig{
		LendingDeskID: 1,
		NftCollection: "0xf1",
		Active:        true,
		MinAmount:     big.NewInt(100),
		MaxAmount:     big.NewInt(1000),
	}

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		return tx.LoanConfigs().Upsert(ctx, cfg)
	}))

	n, err := s.LoanConfigs().CountActiveByCollection(ctx, "0xf1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	listed, err := s.LoanConfigs().ListByDesk(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "1-0xf1", listed[0].ID())

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		return tx.LoanConfigs().Delete(ctx, 1, "0xf1")
	}))

	_, err = s.LoanConfigs().Get(ctx, 1, "0xf1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.Apply(ctx, func(tx domain.EntityTx) error {
		return tx.LoanConfigs().Delete(ctx, 1, "0xf1")
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, func(tx domain.EntityTx) error {
		for _, id := range []uint64{3, 1, 2} {
			loan := domain.Loan{
				ID:             id,
				LendingDeskID:  1,
				Status:         domain.LoanStatusActive,
				Borrower:       "0xb1",
				Amount:         big.NewInt(100),
				AmountPaidBack: big.NewInt(0),
			}
			if err := tx.Loans().Create(ctx, loan); err != nil {
				return err
			}
		}
		return nil
	}))

	loans, err := s.Loans().ListByDesk(ctx, 1)
	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, uint64(1), loans[0].ID)
	assert.Equal(t, uint64(2), loans[1].ID)
	assert.Equal(t, uint64(3), loans[2].ID)

	byBorrower, err := s.Loans().ListByBorrower(ctx, "0xb1")
	require.NoError(t, err)
	assert.Len(t, byBorrower, 3)
}
