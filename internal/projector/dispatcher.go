package projector

import (
	"context"
	"fmt"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// apply routes one event to its handler. The payload type is fixed per kind;
// a mismatch means the feed adapter is broken and is treated as fatal.
func (p *Projector) apply(ctx context.Context, tx domain.EntityTx, ev domain.Event) error {
	switch pl := ev.Payload.(type) {
	case domain.ProtocolOwnershipTransferred:
		return p.applyProtocolOwnershipTransferred(ctx, tx, pl)
	case domain.ProtocolPauseSet:
		return p.applyProtocolPauseSet(ctx, tx, pl)
	case domain.LoanOriginationFeeSet:
		return p.applyLoanOriginationFeeSet(ctx, tx, pl)
	case domain.PlatformWalletSet:
		return p.applyPlatformWalletSet(ctx, tx, pl)

	case domain.LendingDeskInitialized:
		return p.applyLendingDeskInitialized(ctx, tx, pl)
	case domain.LoanConfigsSet:
		return p.applyLoanConfigsSet(ctx, tx, pl)
	case domain.LoanConfigRemoved:
		return p.applyLoanConfigRemoved(ctx, tx, pl)
	case domain.LiquidityDeposited:
		return p.applyLiquidityDeposited(ctx, tx, pl)
	case domain.LiquidityWithdrawn:
		return p.applyLiquidityWithdrawn(ctx, tx, pl)
	case domain.DeskStateSet:
		return p.applyDeskStateSet(ctx, tx, pl)
	case domain.DeskDissolved:
		return p.applyDeskDissolved(ctx, tx, pl)
	case domain.DeskOwnershipTransferred:
		return p.applyDeskOwnershipTransferred(ctx, tx, pl)

	case domain.LoanOriginated:
		return p.applyLoanOriginated(ctx, tx, ev.Timestamp, pl)
	case domain.LoanPaymentMade:
		return p.applyLoanPaymentMade(ctx, tx, pl)
	case domain.DefaultedLoanLiquidated:
		return p.applyDefaultedLoanLiquidated(ctx, tx, pl)
	case domain.LoanPartyTransferred:
		return p.applyLoanPartyTransferred(ctx, tx, pl)

	default:
		return fmt.Errorf("dispatcher: event %s carries unexpected payload %T", ev.Kind, ev.Payload)
	}
}
