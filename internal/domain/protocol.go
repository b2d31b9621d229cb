package domain

// ZeroAddress is the canonical null address. An ownership transfer whose
// previous owner is the zero address is the protocol deployment itself.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// DefaultLoanOriginationFeeBps is the fee the lending contract is deployed
// with. The deployment event does not carry it, so the singleton starts here
// until a LoanOriginationFeeSet event overrides it.
const DefaultLoanOriginationFeeBps = 200

// ProtocolInfo is the protocol-wide singleton aggregate. It is created
// exactly once, by the ownership transfer from the zero address that the
// lending contract emits in its constructor, and never destroyed.
//
// The four counters track live cardinality under "active" semantics:
// LendingDesksCount counts Active desks, Erc20sCount counts currencies with
// at least one Active desk, and NftCollectionsCount counts collections with
// at least one active loan config.
type ProtocolInfo struct {
	Owner                 string
	Paused                bool
	LoanOriginationFeeBps uint64
	PlatformWallet        string

	LendingDesksCount   int64
	LoansCount          int64
	NftCollectionsCount int64
	Erc20sCount         int64
}
