package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// loadActiveLoan loads a loan and enforces terminality: events against a
// Resolved or Defaulted loan are logged and dropped, never applied. The bool
// reports whether the loan was found and is still Active.
func (p *Projector) loadActiveLoan(ctx context.Context, tx domain.EntityTx, loanID uint64, op string) (domain.Loan, bool, error) {
	loan, err := tx.Loans().Get(ctx, loanID)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "loan unknown, event dropped",
			slog.String("op", op),
			slog.Uint64("loan_id", loanID),
		)
		return domain.Loan{}, false, nil
	}
	if err != nil {
		return domain.Loan{}, false, fmt.Errorf("load loan %d: %w", loanID, err)
	}
	if loan.Terminal() {
		p.logger.WarnContext(ctx, "event on terminal loan dropped",
			slog.String("op", op),
			slog.Uint64("loan_id", loanID),
			slog.String("status", string(loan.Status)),
			slog.String("reason", domain.ErrTerminalState.Error()),
		)
		return domain.Loan{}, false, nil
	}
	return loan, true, nil
}

func (p *Projector) applyLoanOriginated(ctx context.Context, tx domain.EntityTx, timestamp uint64, pl domain.LoanOriginated) error {
	desk, ok, err := p.loadDesk(ctx, tx, pl.DeskID, "loan_originated")
	if err != nil || !ok {
		return err
	}
	proto, err := p.requireProtocol(ctx, tx)
	if err != nil {
		return err
	}

	borrower, err := p.ensureUser(ctx, tx, pl.Borrower)
	if err != nil {
		return err
	}
	lender, err := p.ensureUser(ctx, tx, desk.Owner)
	if err != nil {
		return err
	}

	loan := domain.Loan{
		ID:             pl.LoanID,
		LendingDeskID:  pl.DeskID,
		Status:         domain.LoanStatusActive,
		Borrower:       pl.Borrower,
		Lender:         desk.Owner,
		NftCollection:  pl.NftCollection,
		NftID:          bigOrZero(pl.NftID),
		Amount:         bigOrZero(pl.Amount),
		AmountPaidBack: bigOrZero(nil),
		Duration:       pl.Duration,
		InterestBps:    pl.InterestBps,
		StartTime:      timestamp,
	}
	if err := tx.Loans().Create(ctx, loan); err != nil {
		return fmt.Errorf("create loan %d: %w", pl.LoanID, err)
	}

	lender.LoansIssuedCount++
	if err := tx.Users().Update(ctx, lender); err != nil {
		return fmt.Errorf("update lender %s: %w", lender.ID, err)
	}
	borrower.LoansTakenCount++
	if err := tx.Users().Update(ctx, borrower); err != nil {
		return fmt.Errorf("update borrower %s: %w", borrower.ID, err)
	}

	proto.LoansCount++
	if err := tx.Protocol().Update(ctx, proto); err != nil {
		return fmt.Errorf("update protocol info: %w", err)
	}

	desk.LoansCount++
	desk.NetLiquidityIssued = bigAdd(desk.NetLiquidityIssued, pl.Amount)
	desk.AmountBorrowed = bigAdd(desk.AmountBorrowed, pl.Amount)
	desk.Balance = bigSub(desk.Balance, pl.Amount)
	if desk.Balance.Sign() < 0 {
		return fmt.Errorf("desk %d balance %s after originating loan %d: %w",
			pl.DeskID, desk.Balance, pl.LoanID, domain.ErrInvariantViolated)
	}
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", pl.DeskID, err)
	}

	p.logger.InfoContext(ctx, "loan originated",
		slog.Uint64("loan_id", pl.LoanID),
		slog.Uint64("desk_id", pl.DeskID),
		slog.String("borrower", pl.Borrower),
		slog.String("amount", loan.Amount.String()),
	)
	return nil
}

func (p *Projector) applyLoanPaymentMade(ctx context.Context, tx domain.EntityTx, pl domain.LoanPaymentMade) error {
	loan, ok, err := p.loadActiveLoan(ctx, tx, pl.LoanID, "loan_payment_made")
	if err != nil || !ok {
		return err
	}

	loan.AmountPaidBack = bigAdd(loan.AmountPaidBack, pl.Amount)
	if loan.AmountPaidBack.Cmp(loan.Amount) > 0 {
		return fmt.Errorf("loan %d paid back %s exceeds amount %s: %w",
			pl.LoanID, loan.AmountPaidBack, loan.Amount, domain.ErrInvariantViolated)
	}
	if pl.Resolved {
		loan.Status = domain.LoanStatusResolved
	}
	if err := tx.Loans().Update(ctx, loan); err != nil {
		return fmt.Errorf("update loan %d: %w", pl.LoanID, err)
	}

	desk, err := tx.Desks().Get(ctx, loan.LendingDeskID)
	if err != nil {
		return fmt.Errorf("loan %d references desk %d: %w: %w",
			pl.LoanID, loan.LendingDeskID, domain.ErrInvariantViolated, err)
	}
	if pl.Resolved {
		desk.LoansResolvedCount++
	}
	desk.Balance = bigAdd(desk.Balance, pl.Amount)
	desk.AmountBorrowed = bigSub(desk.AmountBorrowed, pl.Amount)
	if desk.AmountBorrowed.Sign() < 0 {
		return fmt.Errorf("desk %d amount borrowed %s after payment on loan %d: %w",
			desk.ID, desk.AmountBorrowed, pl.LoanID, domain.ErrInvariantViolated)
	}
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", desk.ID, err)
	}

	// Party counters advance on every payment event, not only the
	// resolving one; they count repayment activity, not resolved loans.
	lender, err := p.ensureUser(ctx, tx, loan.Lender)
	if err != nil {
		return err
	}
	lender.LoansIssuedResolvedCount++
	if err := tx.Users().Update(ctx, lender); err != nil {
		return fmt.Errorf("update lender %s: %w", lender.ID, err)
	}
	borrower, err := p.ensureUser(ctx, tx, loan.Borrower)
	if err != nil {
		return err
	}
	borrower.LoansTakenResolvedCount++
	if err := tx.Users().Update(ctx, borrower); err != nil {
		return fmt.Errorf("update borrower %s: %w", borrower.ID, err)
	}

	p.logger.InfoContext(ctx, "loan payment applied",
		slog.Uint64("loan_id", pl.LoanID),
		slog.String("amount", bigOrZero(pl.Amount).String()),
		slog.Bool("resolved", pl.Resolved),
	)
	return nil
}

func (p *Projector) applyDefaultedLoanLiquidated(ctx context.Context, tx domain.EntityTx, pl domain.DefaultedLoanLiquidated) error {
	loan, ok, err := p.loadActiveLoan(ctx, tx, pl.LoanID, "defaulted_loan_liquidated")
	if err != nil || !ok {
		return err
	}

	loan.Status = domain.LoanStatusDefaulted
	if err := tx.Loans().Update(ctx, loan); err != nil {
		return fmt.Errorf("update loan %d: %w", pl.LoanID, err)
	}

	// The outstanding principal is written off, not zeroed retroactively.
	outstanding := bigSub(loan.Amount, loan.AmountPaidBack)

	desk, err := tx.Desks().Get(ctx, loan.LendingDeskID)
	if err != nil {
		return fmt.Errorf("loan %d references desk %d: %w: %w",
			pl.LoanID, loan.LendingDeskID, domain.ErrInvariantViolated, err)
	}
	desk.LoansDefaultedCount++
	desk.AmountBorrowed = bigSub(desk.AmountBorrowed, outstanding)
	if desk.AmountBorrowed.Sign() < 0 {
		return fmt.Errorf("desk %d amount borrowed %s after default of loan %d: %w",
			desk.ID, desk.AmountBorrowed, pl.LoanID, domain.ErrInvariantViolated)
	}
	desk.NetProfit = bigSub(desk.NetProfit, outstanding)
	if err := tx.Desks().Update(ctx, desk); err != nil {
		return fmt.Errorf("update desk %d: %w", desk.ID, err)
	}

	lender, err := p.ensureUser(ctx, tx, loan.Lender)
	if err != nil {
		return err
	}
	lender.LoansIssuedDefaultedCount++
	if err := tx.Users().Update(ctx, lender); err != nil {
		return fmt.Errorf("update lender %s: %w", lender.ID, err)
	}
	borrower, err := p.ensureUser(ctx, tx, loan.Borrower)
	if err != nil {
		return err
	}
	borrower.LoansTakenDefaultedCount++
	if err := tx.Users().Update(ctx, borrower); err != nil {
		return fmt.Errorf("update borrower %s: %w", borrower.ID, err)
	}

	p.logger.InfoContext(ctx, "loan defaulted",
		slog.Uint64("loan_id", pl.LoanID),
		slog.String("written_off", outstanding.String()),
	)
	return nil
}

func (p *Projector) applyLoanPartyTransferred(ctx context.Context, tx domain.EntityTx, pl domain.LoanPartyTransferred) error {
	loan, ok, err := p.loadActiveLoan(ctx, tx, pl.LoanID, "loan_party_transferred")
	if err != nil || !ok {
		return err
	}
	if _, err := p.ensureUser(ctx, tx, pl.NewHolder); err != nil {
		return err
	}

	switch pl.Role {
	case domain.LoanRoleLender:
		loan.Lender = pl.NewHolder
	case domain.LoanRoleBorrower:
		loan.Borrower = pl.NewHolder
	default:
		return fmt.Errorf("loan %d party transfer with unknown role %q", pl.LoanID, pl.Role)
	}
	if err := tx.Loans().Update(ctx, loan); err != nil {
		return fmt.Errorf("update loan %d: %w", pl.LoanID, err)
	}
	return nil
}
