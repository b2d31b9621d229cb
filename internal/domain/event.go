package domain

import "math/big"

// Position is the total order of an event within the finalized chain:
// block number, then transaction index, then log index.
type Position struct {
	Block    uint64 `json:"block"`
	TxIndex  uint64 `json:"txIndex"`
	LogIndex uint64 `json:"logIndex"`
}

// Cmp returns -1, 0 or 1 as p orders before, equal to, or after other.
func (p Position) Cmp(other Position) int {
	switch {
	case p.Block != other.Block:
		if p.Block < other.Block {
			return -1
		}
		return 1
	case p.TxIndex != other.TxIndex:
		if p.TxIndex < other.TxIndex {
			return -1
		}
		return 1
	case p.LogIndex != other.LogIndex:
		if p.LogIndex < other.LogIndex {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// EventKind identifies a settlement-layer event type.
type EventKind string

const (
	KindProtocolOwnershipTransferred EventKind = "protocol_ownership_transferred"
	KindProtocolPauseSet             EventKind = "protocol_pause_set"
	KindLoanOriginationFeeSet        EventKind = "loan_origination_fee_set"
	KindPlatformWalletSet            EventKind = "platform_wallet_set"

	KindLendingDeskInitialized   EventKind = "lending_desk_initialized"
	KindLoanConfigsSet           EventKind = "loan_configs_set"
	KindLoanConfigRemoved        EventKind = "loan_config_removed"
	KindLiquidityDeposited       EventKind = "liquidity_deposited"
	KindLiquidityWithdrawn       EventKind = "liquidity_withdrawn"
	KindDeskStateSet             EventKind = "desk_state_set"
	KindDeskDissolved            EventKind = "desk_dissolved"
	KindDeskOwnershipTransferred EventKind = "desk_ownership_transferred"

	KindLoanOriginated          EventKind = "loan_originated"
	KindLoanPaymentMade         EventKind = "loan_payment_made"
	KindDefaultedLoanLiquidated EventKind = "defaulted_loan_liquidated"
	KindLoanPartyTransferred    EventKind = "loan_party_transferred"
)

// Event is the envelope for a single finalized settlement-layer event.
// Payload holds the kind-specific struct below.
type Event struct {
	Position  Position  `json:"position"`
	Kind      EventKind `json:"kind"`
	Timestamp uint64    `json:"timestamp"` // block timestamp, unix seconds
	TxHash    string    `json:"txHash"`
	Payload   any       `json:"payload"`
}

// LoanConfigTerms is the loan config tuple carried inside desk events.
type LoanConfigTerms struct {
	NftCollection string   `json:"nftCollection"`
	IsErc1155     bool     `json:"isErc1155"`
	MinAmount     *big.Int `json:"minAmount"`
	MaxAmount     *big.Int `json:"maxAmount"`
	MinDuration   uint64   `json:"minDuration"`
	MaxDuration   uint64   `json:"maxDuration"`
	MinInterest   uint64   `json:"minInterest"`
	MaxInterest   uint64   `json:"maxInterest"`
}

// ProtocolOwnershipTransferred covers both protocol deployment (previous
// owner is the zero address) and later admin handovers.
type ProtocolOwnershipTransferred struct {
	PreviousOwner string `json:"previousOwner"`
	NewOwner      string `json:"newOwner"`
}

// ProtocolPauseSet toggles the protocol-wide pause flag.
type ProtocolPauseSet struct {
	Paused bool `json:"paused"`
}

// LoanOriginationFeeSet updates the protocol origination fee.
type LoanOriginationFeeSet struct {
	FeeBps uint64 `json:"feeBps"`
}

// PlatformWalletSet updates the protocol fee wallet.
type PlatformWalletSet struct {
	Wallet string `json:"wallet"`
}

// LendingDeskInitialized creates a desk with its initial loan configs.
// InitialBalance is zero on current deployments; the legacy variant funded
// the desk in the same transaction.
type LendingDeskInitialized struct {
	DeskID         uint64            `json:"deskId"`
	Owner          string            `json:"owner"`
	Erc20          string            `json:"erc20"`
	InitialBalance *big.Int          `json:"initialBalance"`
	LoanConfigs    []LoanConfigTerms `json:"loanConfigs"`
}

// LoanConfigsSet upserts per-collection lending terms on a desk.
type LoanConfigsSet struct {
	DeskID      uint64            `json:"deskId"`
	LoanConfigs []LoanConfigTerms `json:"loanConfigs"`
}

// LoanConfigRemoved deletes the terms for one collection on a desk.
type LoanConfigRemoved struct {
	DeskID        uint64 `json:"deskId"`
	NftCollection string `json:"nftCollection"`
}

// LiquidityDeposited adds funds to a desk balance.
type LiquidityDeposited struct {
	DeskID uint64   `json:"deskId"`
	Amount *big.Int `json:"amount"`
}

// LiquidityWithdrawn removes funds from a desk balance. The settlement
// layer guarantees the amount does not exceed the balance.
type LiquidityWithdrawn struct {
	DeskID uint64   `json:"deskId"`
	Amount *big.Int `json:"amount"`
}

// DeskStateSet freezes or unfreezes a desk.
type DeskStateSet struct {
	DeskID uint64 `json:"deskId"`
	Freeze bool   `json:"freeze"`
}

// DeskDissolved permanently retires a desk.
type DeskDissolved struct {
	DeskID uint64 `json:"deskId"`
}

// DeskOwnershipTransferred follows a lending-keys token transfer.
type DeskOwnershipTransferred struct {
	DeskID   uint64 `json:"deskId"`
	NewOwner string `json:"newOwner"`
}

// LoanOriginated creates a loan against a desk.
type LoanOriginated struct {
	LoanID        uint64   `json:"loanId"`
	DeskID        uint64   `json:"deskId"`
	Borrower      string   `json:"borrower"`
	NftCollection string   `json:"nftCollection"`
	NftID         *big.Int `json:"nftId"`
	Amount        *big.Int `json:"amount"`
	Duration      uint64   `json:"duration"`
	InterestBps   uint64   `json:"interestBps"`
}

// LoanPaymentMade records a partial or final repayment.
type LoanPaymentMade struct {
	LoanID   uint64   `json:"loanId"`
	Amount   *big.Int `json:"amount"`
	Resolved bool     `json:"resolved"`
}

// DefaultedLoanLiquidated marks an overdue loan as defaulted and releases
// the collateral to the lender.
type DefaultedLoanLiquidated struct {
	LoanID uint64 `json:"loanId"`
}

// LoanPartyTransferred follows a promissory/obligation note transfer on the
// secondary market.
type LoanPartyTransferred struct {
	LoanID    uint64   `json:"loanId"`
	NewHolder string   `json:"newHolder"`
	Role      LoanRole `json:"role"`
}
