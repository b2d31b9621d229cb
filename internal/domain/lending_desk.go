package domain

import (
	"fmt"
	"math/big"
)

// DeskStatus represents the lifecycle state of a lending desk.
type DeskStatus string

const (
	DeskStatusActive    DeskStatus = "active"
	DeskStatusFrozen    DeskStatus = "frozen"
	DeskStatusDissolved DeskStatus = "dissolved"
)

// LendingDesk is a liquidity pool owned by a single lender. The desk funds
// loans in one ERC-20 currency against the NFT collections configured in its
// loan configs.
//
// Balance is in the currency's smallest unit and must stay non-negative:
// it equals deposits minus withdrawals minus principal lent plus repayments.
// AmountBorrowed is the principal currently outstanding across the desk's
// active loans. Active <-> Frozen is repeatable; Dissolved is terminal.
type LendingDesk struct {
	ID     uint64
	Erc20  string // funding currency address
	Owner  string
	Status DeskStatus

	Balance             *big.Int
	LoansCount          int64
	LoansDefaultedCount int64
	LoansResolvedCount  int64
	NetLiquidityIssued  *big.Int
	NetProfit           *big.Int // signed; default write-offs push it negative
	AmountBorrowed      *big.Int
}

// Terminal reports whether the desk can still transition.
func (d LendingDesk) Terminal() bool {
	return d.Status == DeskStatusDissolved
}

// LoanConfig holds the per-collection lending terms of a desk. Keyed by
// (desk, collection); the derived string ID follows the convention
// "<deskId>-<collection>". Freezing the desk flips Active off without
// deleting the row, so unfreezing can restore the exact prior set.
type LoanConfig struct {
	LendingDeskID uint64
	NftCollection string
	Active        bool

	MinAmount   *big.Int
	MaxAmount   *big.Int
	MinDuration uint64 // hours
	MaxDuration uint64
	MinInterest uint64 // basis points
	MaxInterest uint64
}

// ID returns the composite identifier of the config.
func (c LoanConfig) ID() string {
	return fmt.Sprintf("%d-%s", c.LendingDeskID, c.NftCollection)
}
