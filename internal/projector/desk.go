package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// loadDesk implements the load-or-skip pattern: a missing desk is a
// tolerated gap (events for entities outside the observed history) and a
// dissolved desk accepts no further transitions, so both cases drop the
// event. The bool reports whether the desk was found and can still change.
func (p *Projector) loadDesk(ctx context.Context, tx domain.EntityTx, deskID uint64, op string) (domain.LendingDesk, bool, error) {
	desk, err := tx.Desks().Get(ctx, deskID)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "desk unknown, event dropped",
			slog.String("op", op),
			slog.Uint64("desk_id", deskID),
		)
		return domain.LendingDesk{}, false, nil
	}
	if err != nil {
		return domain.LendingDesk{}, false, fmt.Errorf("load desk %d: %w", deskID, err)
	}
	if desk.Terminal() {
		p.logger.WarnContext(ctx, "event on dissolved desk dropped",
			slog.String("op", op),
			slog.Uint64("desk_id", deskID),
			slog.String("reason", domain.ErrTerminalState.Error()),
		)
		return domain.LendingDesk{}, false, nil
	}
	return desk, true, nil
}

func (p *Projector) applyLendingDeskInitialized(ctx context.Context, tx domain.EntityTx, pl domain.LendingDeskInitialized) error {
	proto, err := p.requireProtocol(ctx, tx)
	if err != nil {
		return err
	}

	if err := p.ensureErc20(ctx, tx, pl.Erc20); err != nil {
		return err
	}
	if _, err := p.ensureUser(ctx, tx, pl.Owner); err != nil {
		return err
	}

	desk := domain.LendingDesk{
		ID:                 pl.DeskID,
		Erc20:              pl.Erc20,
		Owner:              pl.Owner,
		Status:             domain.DeskStatusActive,
		Balance:            bigOrZero(pl.InitialBalance),
		NetLiquidityIssued: bigOrZero(nil),
		NetProfit:          bigOrZero(nil),
		AmountBorrowed:     bigOrZero(nil),
	}
	if err := tx.Desks().Create(ctx, desk); err != nil {
		return fmt.Errorf("create desk %d: %w", pl.DeskID, err)
	}

	for _, terms := range pl.LoanConfigs {
		if err := p.upsertLoanConfig(ctx, tx, &proto, pl.DeskID, terms); err != nil {
			return err
		}
	}

	proto.LendingDesksCount++
	active, err := tx.Desks().CountActiveByErc20(ctx, pl.Erc20)
	if err != nil {
		return fmt.Errorf("count active desks for %s: %w", pl.Erc20, err)
	}
	if active == 1 {
		proto.Erc20sCount++
	}
	if err := tx.Protocol().Update(ctx, proto); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}

	p.logger.InfoContext(ctx, "desk initialized",
		slog.Uint64("desk_id", pl.DeskID),
		slog.String("owner", pl.Owner),
		slog.String("erc20", pl.Erc20),
		slog.Int("loan_configs", len(pl.LoanConfigs)),
	)
	return nil
}

func (p *Projector) applyLoanConfigsSet(ctx context.Context, tx domain.EntityTx, pl domain.LoanConfigsSet) error {
	if _, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "loan_configs_set"); err != nil || !ok {
		return err
	}

	proto, err := p.requireProtocol(ctx, tx)
	if err != nil {
		return err
	}
	for _, terms := range pl.LoanConfigs {
		if err := p.upsertLoanConfig(ctx, tx, &proto, pl.DeskID, terms); err != nil {
			return err
		}
	}
	if err := tx.Protocol().Update(ctx, proto); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}
	return nil
}

func (p *Projector) applyLoanConfigRemoved(ctx context.Context, tx domain.EntityTx, pl domain.LoanConfigRemoved) error {
	_, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "loan_config_removed")
	if err != nil || !ok {
		return err
	}

	cfg, err := tx.LoanConfigs().Get(ctx, pl.DeskID, pl.NftCollection)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "loan config unknown, removal dropped",
			slog.Uint64("desk_id", pl.DeskID),
			slog.String("collection", pl.NftCollection),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load loan config %d-%s: %w", pl.DeskID, pl.NftCollection, err)
	}

	if err := tx.LoanConfigs().Delete(ctx, pl.DeskID, pl.NftCollection); err != nil {
		return fmt.Errorf("delete loan config %s: %w", cfg.ID(), err)
	}

	if cfg.Active {
		proto, err := p.requireProtocol(ctx, tx)
		if err != nil {
			return err
		}
		if err := p.bumpCollectionActive(ctx, tx, &proto, pl.NftCollection, -1); err != nil {
			return err
		}
		if err := tx.Protocol().Update(ctx, proto); err != nil {
			return fmt.Errorf("update protocol info: %w", err)
		}
	}
	return nil
}

func (p *Projector) applyLiquidityDeposited(ctx context.Context, tx domain.EntityTx, pl domain.LiquidityDeposited) error {
	desk, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "liquidity_deposited")
	if err != nil || !ok {
		return err
	}
	desk.Balance = bigAdd(desk.Balance, pl.Amount)
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", pl.DeskID, err)
	}
	return nil
}

func (p *Projector) applyLiquidityWithdrawn(ctx context.Context, tx domain.EntityTx, pl domain.LiquidityWithdrawn) error {
	desk, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "liquidity_withdrawn")
	if err != nil || !ok {
		return err
	}
	desk.Balance = bigSub(desk.Balance, pl.Amount)
	if desk.Balance.Sign() < 0 {
		return fmt.Errorf("desk %d balance %s after withdrawal: %w",
			pl.DeskID, desk.Balance, domain.ErrInvariantViolated)
	}
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", pl.DeskID, err)
	}
	return nil
}

// applyDeskStateSet toggles Active <-> Frozen. Freeze and unfreeze are exact
// inverses over any event sequence: freezing deactivates every config and
// retracts the desk from the aggregate counters, unfreezing restores the
// same set and re-adds it.
func (p *Projector) applyDeskStateSet(ctx context.Context, tx domain.EntityTx, pl domain.DeskStateSet) error {
	desk, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "desk_state_set")
	if err != nil || !ok {
		return err
	}

	switch {
	case pl.Freeze && desk.Status == domain.DeskStatusActive:
		return p.setDeskFrozen(ctx, tx, desk, true)
	case !pl.Freeze && desk.Status == domain.DeskStatusFrozen:
		return p.setDeskFrozen(ctx, tx, desk, false)
	default:
		p.logger.DebugContext(ctx, "desk already in requested state",
			slog.Uint64("desk_id", pl.DeskID),
			slog.Bool("freeze", pl.Freeze),
		)
		return nil
	}
}

func (p *Projector) setDeskFrozen(ctx context.Context, tx domain.EntityTx, desk domain.LendingDesk, freeze bool) error {
	if freeze {
		desk.Status = domain.DeskStatusFrozen
	} else {
		desk.Status = domain.DeskStatusActive
	}
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", desk.ID, err)
	}

	proto, err := p.requireProtocol(ctx, tx)
	if err != nil {
		return err
	}

	configs, err := tx.LoanConfigs().ListByDesk(ctx, desk.ID)
	if err != nil {
		return fmt.Errorf("list configs of desk %d: %w", desk.ID, err)
	}
	for _, cfg := range configs {
		if cfg.Active != freeze {
			continue // already in the target state
		}
		cfg.Active = !freeze
		if err := tx.LoanConfigs().Upsert(ctx, cfg); err != nil {
			return fmt.Errorf("upsert loan config %s: %w", cfg.ID(), err)
		}
		delta := int64(1)
		if freeze {
			delta = -1
		}
		if err := p.bumpCollectionActive(ctx, tx, &proto, cfg.NftCollection, delta); err != nil {
			return err
		}
	}

	active, err := tx.Desks().CountActiveByErc20(ctx, desk.Erc20)
	if err != nil {
		return fmt.Errorf("count active desks for %s: %w", desk.Erc20, err)
	}
	if freeze {
		proto.LendingDesksCount--
		if active == 0 {
			proto.Erc20sCount--
		}
	} else {
		proto.LendingDesksCount++
		if active == 1 {
			proto.Erc20sCount++
		}
	}
	if err := tx.Protocol().Update(ctx, proto); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}

	p.logger.InfoContext(ctx, "desk state changed",
		slog.Uint64("desk_id", desk.ID),
		slog.String("status", string(desk.Status)),
	)
	return nil
}

func (p *Projector) applyDeskDissolved(ctx context.Context, tx domain.EntityTx, pl domain.DeskDissolved) error {
	desk, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "desk_dissolved")
	if err != nil || !ok {
		return err
	}

	wasActive := desk.Status == domain.DeskStatusActive
	desk.Status = domain.DeskStatusDissolved
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", pl.DeskID, err)
	}

	// A frozen desk already left the active counters when it froze.
	if wasActive {
		proto, err := p.requireProtocol(ctx, tx)
		if err != nil {
			return err
		}
		proto.LendingDesksCount--
		if err := tx.Protocol().Update(ctx, proto); err != nil {
			return fmt.Errorf("update protocol info: %w", err)
		}
	}

	p.logger.InfoContext(ctx, "desk dissolved", slog.Uint64("desk_id", pl.DeskID))
	return nil
}

func (p *Projector) applyDeskOwnershipTransferred(ctx context.Context, tx domain.EntityTx, pl domain.DeskOwnershipTransferred) error {
	desk, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "desk_ownership_transferred")
	if err != nil || !ok {
		return err
	}
	if _, err := p.ensureUser(ctx, tx, pl.NewOwner); err != nil {
		return err
	}
	desk.Owner = pl.NewOwner
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", pl.DeskID, err)
	}
	return nil
}
