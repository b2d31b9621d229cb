package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// Contracts holds the deployed addresses the decoder watches. PromissoryNotes
// is optional; deployments without a lender-side note leave it empty.
type Contracts struct {
	Lending         string
	LendingKeys     string
	ObligationNotes string
	PromissoryNotes string
}

// Decoder turns raw settlement-layer logs into domain events. Logs from
// unwatched addresses or with unknown topics decode to ok=false, never to an
// error.
type Decoder struct {
	lendingABI abi.ABI

	lending         common.Address
	lendingKeys     common.Address
	obligationNotes common.Address
	promissoryNotes common.Address
	hasPromissory   bool

	transferTopic common.Hash
	sigs          map[common.Hash]string
}

// loanConfigTuple matches the loanConfigs ABI component by field name.
type loanConfigTuple struct {
	NftCollection          common.Address
	NftCollectionIsErc1155 bool
	MinAmount              *big.Int
	MaxAmount              *big.Int
	MinDuration            uint32
	MaxDuration            uint32
	MinInterest            uint32
	MaxInterest            uint32
}

// NewDecoder parses the embedded ABIs and indexes event signatures.
func NewDecoder(contracts Contracts) (*Decoder, error) {
	lending, err := abi.JSON(strings.NewReader(lendingABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse lending abi: %w", err)
	}
	erc721, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse erc721 abi: %w", err)
	}
	if contracts.Lending == "" || contracts.LendingKeys == "" || contracts.ObligationNotes == "" {
		return nil, fmt.Errorf("evm: lending, lending keys and obligation notes addresses are required")
	}

	d := &Decoder{
		lendingABI:      lending,
		lending:         common.HexToAddress(contracts.Lending),
		lendingKeys:     common.HexToAddress(contracts.LendingKeys),
		obligationNotes: common.HexToAddress(contracts.ObligationNotes),
		transferTopic:   erc721.Events["Transfer"].ID,
		sigs:            make(map[common.Hash]string, len(lending.Events)),
	}
	if contracts.PromissoryNotes != "" {
		d.promissoryNotes = common.HexToAddress(contracts.PromissoryNotes)
		d.hasPromissory = true
	}
	for name, ev := range lending.Events {
		d.sigs[ev.ID] = name
	}
	return d, nil
}

// Watched returns the addresses to pass to log filters.
func (d *Decoder) Watched() []common.Address {
	addrs := []common.Address{d.lending, d.lendingKeys, d.obligationNotes}
	if d.hasPromissory {
		addrs = append(addrs, d.promissoryNotes)
	}
	return addrs
}

// Decode maps one log to a domain event. The block timestamp is not part of
// the log and has to be supplied by the caller.
func (d *Decoder) Decode(lg types.Log, timestamp uint64) (domain.Event, bool, error) {
	if len(lg.Topics) == 0 {
		return domain.Event{}, false, nil
	}

	ev := domain.Event{
		Position: domain.Position{
			Block:    lg.BlockNumber,
			TxIndex:  uint64(lg.TxIndex),
			LogIndex: uint64(lg.Index),
		},
		Timestamp: timestamp,
		TxHash:    lg.TxHash.Hex(),
	}

	switch lg.Address {
	case d.lending:
		return d.decodeLending(lg, ev)
	case d.lendingKeys, d.obligationNotes:
		return d.decodeTransfer(lg, ev)
	default:
		if d.hasPromissory && lg.Address == d.promissoryNotes {
			return d.decodeTransfer(lg, ev)
		}
		return domain.Event{}, false, nil
	}
}

func (d *Decoder) decodeLending(lg types.Log, ev domain.Event) (domain.Event, bool, error) {
	name, ok := d.sigs[lg.Topics[0]]
	if !ok {
		return domain.Event{}, false, nil
	}

	fail := func(err error) (domain.Event, bool, error) {
		return domain.Event{}, false, fmt.Errorf("evm: decode %s at %d/%d: %w", name, lg.BlockNumber, lg.Index, err)
	}

	switch name {
	case "OwnershipTransferred":
		// Both parameters are indexed; nothing to unpack from data.
		if len(lg.Topics) < 3 {
			return fail(fmt.Errorf("want 3 topics, got %d", len(lg.Topics)))
		}
		ev.Kind = domain.KindProtocolOwnershipTransferred
		ev.Payload = domain.ProtocolOwnershipTransferred{
			PreviousOwner: topicAddress(lg.Topics[1]),
			NewOwner:      topicAddress(lg.Topics[2]),
		}

	case "Paused", "Unpaused":
		ev.Kind = domain.KindProtocolPauseSet
		ev.Payload = domain.ProtocolPauseSet{Paused: name == "Paused"}

	case "LoanOriginationFeeSet":
		var out struct{ LoanOriginationFee *big.Int }
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLoanOriginationFeeSet
		ev.Payload = domain.LoanOriginationFeeSet{FeeBps: out.LoanOriginationFee.Uint64()}

	case "PlatformWalletSet":
		var out struct{ PlatformWallet common.Address }
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindPlatformWalletSet
		ev.Payload = domain.PlatformWalletSet{Wallet: lowerHex(out.PlatformWallet)}

	case "NewLendingDeskInitialized":
		var out struct {
			LendingDeskId  *big.Int
			Owner          common.Address
			Erc20          common.Address
			InitialBalance *big.Int
			LoanConfigs    []loanConfigTuple
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLendingDeskInitialized
		ev.Payload = domain.LendingDeskInitialized{
			DeskID:         out.LendingDeskId.Uint64(),
			Owner:          lowerHex(out.Owner),
			Erc20:          lowerHex(out.Erc20),
			InitialBalance: out.InitialBalance,
			LoanConfigs:    convertConfigs(out.LoanConfigs),
		}

	case "LendingDeskLoanConfigsSet":
		var out struct {
			LendingDeskId *big.Int
			LoanConfigs   []loanConfigTuple
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLoanConfigsSet
		ev.Payload = domain.LoanConfigsSet{
			DeskID:      out.LendingDeskId.Uint64(),
			LoanConfigs: convertConfigs(out.LoanConfigs),
		}

	case "LendingDeskLoanConfigRemoved":
		var out struct {
			LendingDeskId *big.Int
			NftCollection common.Address
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLoanConfigRemoved
		ev.Payload = domain.LoanConfigRemoved{
			DeskID:        out.LendingDeskId.Uint64(),
			NftCollection: lowerHex(out.NftCollection),
		}

	case "LendingDeskLiquidityDeposited":
		var out struct {
			LendingDeskId   *big.Int
			AmountDeposited *big.Int
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLiquidityDeposited
		ev.Payload = domain.LiquidityDeposited{
			DeskID: out.LendingDeskId.Uint64(),
			Amount: out.AmountDeposited,
		}

	case "LendingDeskLiquidityWithdrawn":
		var out struct {
			LendingDeskId   *big.Int
			AmountWithdrawn *big.Int
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLiquidityWithdrawn
		ev.Payload = domain.LiquidityWithdrawn{
			DeskID: out.LendingDeskId.Uint64(),
			Amount: out.AmountWithdrawn,
		}

	case "LendingDeskStateSet":
		var out struct {
			LendingDeskId *big.Int
			Freeze        bool
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindDeskStateSet
		ev.Payload = domain.DeskStateSet{
			DeskID: out.LendingDeskId.Uint64(),
			Freeze: out.Freeze,
		}

	case "LendingDeskDissolved":
		var out struct{ LendingDeskId *big.Int }
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindDeskDissolved
		ev.Payload = domain.DeskDissolved{DeskID: out.LendingDeskId.Uint64()}

	case "NewLoanInitialized":
		var out struct {
			LendingDeskId *big.Int
			LoanId        *big.Int
			Borrower      common.Address
			NftCollection common.Address
			NftId         *big.Int
			Amount        *big.Int
			Duration      *big.Int
			Interest      *big.Int
			PlatformFee   *big.Int
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLoanOriginated
		ev.Payload = domain.LoanOriginated{
			LoanID:        out.LoanId.Uint64(),
			DeskID:        out.LendingDeskId.Uint64(),
			Borrower:      lowerHex(out.Borrower),
			NftCollection: lowerHex(out.NftCollection),
			NftID:         out.NftId,
			Amount:        out.Amount,
			Duration:      out.Duration.Uint64(),
			InterestBps:   out.Interest.Uint64(),
		}

	case "LoanPaymentMade":
		var out struct {
			LoanId     *big.Int
			AmountPaid *big.Int
			Resolved   bool
		}
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindLoanPaymentMade
		ev.Payload = domain.LoanPaymentMade{
			LoanID:   out.LoanId.Uint64(),
			Amount:   out.AmountPaid,
			Resolved: out.Resolved,
		}

	case "DefaultedLoanLiquidated":
		var out struct{ LoanId *big.Int }
		if err := d.lendingABI.UnpackIntoInterface(&out, name, lg.Data); err != nil {
			return fail(err)
		}
		ev.Kind = domain.KindDefaultedLoanLiquidated
		ev.Payload = domain.DefaultedLoanLiquidated{LoanID: out.LoanId.Uint64()}

	default:
		return domain.Event{}, false, nil
	}

	return ev, true, nil
}

// decodeTransfer maps ERC-721 transfers on the key and note contracts to
// ownership changes. Mints are dropped: desk and loan creation is carried by
// the lending contract events in the same transaction. Burns are dropped
// too; they accompany dissolve and resolution, which have their own events.
func (d *Decoder) decodeTransfer(lg types.Log, ev domain.Event) (domain.Event, bool, error) {
	if lg.Topics[0] != d.transferTopic || len(lg.Topics) < 4 {
		return domain.Event{}, false, nil
	}
	from := topicAddress(lg.Topics[1])
	to := topicAddress(lg.Topics[2])
	if from == domain.ZeroAddress || to == domain.ZeroAddress {
		return domain.Event{}, false, nil
	}
	tokenID := new(big.Int).SetBytes(lg.Topics[3].Bytes()).Uint64()

	switch lg.Address {
	case d.lendingKeys:
		ev.Kind = domain.KindDeskOwnershipTransferred
		ev.Payload = domain.DeskOwnershipTransferred{DeskID: tokenID, NewOwner: to}
	case d.obligationNotes:
		ev.Kind = domain.KindLoanPartyTransferred
		ev.Payload = domain.LoanPartyTransferred{LoanID: tokenID, NewHolder: to, Role: domain.LoanRoleBorrower}
	default:
		ev.Kind = domain.KindLoanPartyTransferred
		ev.Payload = domain.LoanPartyTransferred{LoanID: tokenID, NewHolder: to, Role: domain.LoanRoleLender}
	}
	return ev, true, nil
}

func convertConfigs(in []loanConfigTuple) []domain.LoanConfigTerms {
	out := make([]domain.LoanConfigTerms, 0, len(in))
	for _, c := range in {
		out = append(out, domain.LoanConfigTerms{
			NftCollection: lowerHex(c.NftCollection),
			IsErc1155:     c.NftCollectionIsErc1155,
			MinAmount:     c.MinAmount,
			MaxAmount:     c.MaxAmount,
			MinDuration:   uint64(c.MinDuration),
			MaxDuration:   uint64(c.MaxDuration),
			MinInterest:   uint64(c.MinInterest),
			MaxInterest:   uint64(c.MaxInterest),
		})
	}
	return out
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func topicAddress(topic common.Hash) string {
	return lowerHex(common.BytesToAddress(topic.Bytes()))
}
