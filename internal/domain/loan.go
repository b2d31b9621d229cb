package domain

import "math/big"

// LoanStatus represents the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusResolved  LoanStatus = "resolved"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// LoanRole identifies which side of a loan a party transfer applies to.
type LoanRole string

const (
	LoanRoleLender   LoanRole = "lender"
	LoanRoleBorrower LoanRole = "borrower"
)

// Loan is a single NFT-collateralized loan drawn against a lending desk.
//
// AmountPaidBack is monotonically non-decreasing and never exceeds Amount.
// Resolved and Defaulted are terminal: once set, no event mutates the loan
// again. Lender is snapshotted from the desk owner at origination and only
// changes through secondary note transfers.
type Loan struct {
	ID            uint64
	LendingDeskID uint64
	Status        LoanStatus

	Borrower      string
	Lender        string
	NftCollection string
	NftID         *big.Int

	Amount         *big.Int
	AmountPaidBack *big.Int
	Duration       uint64 // hours
	InterestBps    uint64
	StartTime      uint64 // unix seconds of the origination block
}

// Terminal reports whether the loan can still transition.
func (l Loan) Terminal() bool {
	return l.Status != LoanStatusActive
}
