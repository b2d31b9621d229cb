package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// applyProtocolOwnershipTransferred creates the protocol singleton when the
// previous owner is the zero address (the deployment transfer) and records
// admin handovers afterwards. The singleton is never implicitly constructed:
// parameter events arriving before it exists are pre-initialization
// anomalies and are dropped.
func (p *Projector) applyProtocolOwnershipTransferred(ctx context.Context, tx domain.EntityTx, pl domain.ProtocolOwnershipTransferred) error {
	if pl.PreviousOwner == domain.ZeroAddress {
		_, err := tx.Protocol().Get(ctx)
		if err == nil {
			p.logger.WarnContext(ctx, "duplicate protocol initialization dropped",
				slog.String("new_owner", pl.NewOwner),
				slog.String("reason", domain.ErrAlreadyInitialized.Error()),
			)
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("load protocol info: %w", err)
		}

		info := domain.ProtocolInfo{
			Owner:                 pl.NewOwner,
			LoanOriginationFeeBps: domain.DefaultLoanOriginationFeeBps,
			PlatformWallet:        domain.ZeroAddress,
		}
		if err := tx.Protocol().Create(ctx, info); err != nil {
			return fmt.Errorf("create protocol info: %w", err)
		}
		p.logger.InfoContext(ctx, "protocol initialized", slog.String("owner", pl.NewOwner))
		return nil
	}

	info, err := tx.Protocol().Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "ownership transfer before initialization dropped",
			slog.String("new_owner", pl.NewOwner),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load protocol info: %w", err)
	}
	info.Owner = pl.NewOwner
	if err := tx.Protocol().Update(ctx, info); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}
	return nil
}

func (p *Projector) applyProtocolPauseSet(ctx context.Context, tx domain.EntityTx, pl domain.ProtocolPauseSet) error {
	info, err := tx.Protocol().Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "pause event before initialization dropped", slog.Bool("paused", pl.Paused))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load protocol info: %w", err)
	}
	info.Paused = pl.Paused
	if err := tx.Protocol().Update(ctx, info); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}
	return nil
}

func (p *Projector) applyLoanOriginationFeeSet(ctx context.Context, tx domain.EntityTx, pl domain.LoanOriginationFeeSet) error {
	info, err := tx.Protocol().Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "fee event before initialization dropped", slog.Uint64("fee_bps", pl.FeeBps))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load protocol info: %w", err)
	}
	info.LoanOriginationFeeBps = pl.FeeBps
	if err := tx.Protocol().Update(ctx, info); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}
	return nil
}

func (p *Projector) applyPlatformWalletSet(ctx context.Context, tx domain.EntityTx, pl domain.PlatformWalletSet) error {
	info, err := tx.Protocol().Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "platform wallet event before initialization dropped", slog.String("wallet", pl.Wallet))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load protocol info: %w", err)
	}
	info.PlatformWallet = pl.Wallet
	if err := tx.Protocol().Update(ctx, info); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}
	return nil
}
