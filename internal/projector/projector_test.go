package projector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/store/memory"
)

const (
	addrOwner    = "0x00000000000000000000000000000000000000a1"
	addrBorrower = "0x00000000000000000000000000000000000000b1"
	addrHolder   = "0x00000000000000000000000000000000000000c1"
	addrUSDC     = "0x00000000000000000000000000000000000000e1"
	addrPunks    = "0x00000000000000000000000000000000000000f1"
	addrApes     = "0x00000000000000000000000000000000000000f2"
)

type fakeMeta struct {
	fail  bool
	calls int
}

func (m *fakeMeta) Erc20Metadata(ctx context.Context, address string) (domain.Erc20, error) {
	m.calls++
	if m.fail {
		return domain.Erc20{}, errors.New("rpc unreachable")
	}
	return domain.Erc20{ID: address, Name: "USD Coin", Symbol: "USDC", Decimals: 6}, nil
}

type sliceFeed struct {
	events []domain.Event
	next   int
}

func (f *sliceFeed) Next(ctx context.Context) (domain.Event, error) {
	if f.next >= len(f.events) {
		return domain.Event{}, domain.ErrEndOfFeed
	}
	ev := f.events[f.next]
	f.next++
	return ev, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness drives a projector over a memory store. Each run call continues the
// block numbering of the previous one, so consecutive runs model a restart
// against the same durable state.
type harness struct {
	p     *Projector
	store *memory.Store
	meta  *fakeMeta
	block uint64
}

func newHarness() *harness {
	store := memory.NewStore()
	meta := &fakeMeta{}
	return &harness{
		p:     New(store, meta, nil, nil, testLogger()),
		store: store,
		meta:  meta,
	}
}

func (h *harness) run(t *testing.T, events ...domain.Event) error {
	t.Helper()
	for i := range events {
		h.block++
		events[i].Position.Block = h.block
		events[i].Timestamp = 1700000000 + h.block
	}
	return h.p.Run(context.Background(), &sliceFeed{events: events})
}

func ev(kind domain.EventKind, payload any) domain.Event {
	return domain.Event{Kind: kind, Payload: payload}
}

func protocolInit() domain.Event {
	return ev(domain.KindProtocolOwnershipTransferred, domain.ProtocolOwnershipTransferred{
		PreviousOwner: domain.ZeroAddress,
		NewOwner:      addrOwner,
	})
}

func deskInit(deskID uint64, balance int64, configs ...domain.LoanConfigTerms) domain.Event {
	return ev(domain.KindLendingDeskInitialized, domain.LendingDeskInitialized{
		DeskID:         deskID,
		Owner:          addrOwner,
		Erc20:          addrUSDC,
		InitialBalance: big.NewInt(balance),
		LoanConfigs:    configs,
	})
}

func terms(collection string) domain.LoanConfigTerms {
	return domain.LoanConfigTerms{
		NftCollection: collection,
		MinAmount:     big.NewInt(100),
		MaxAmount:     big.NewInt(10_000),
		MinDuration:   24,
		MaxDuration:   720,
		MinInterest:   200,
		MaxInterest:   2000,
	}
}

func originate(loanID, deskID uint64, amount int64) domain.Event {
	return ev(domain.KindLoanOriginated, domain.LoanOriginated{
		LoanID:        loanID,
		DeskID:        deskID,
		Borrower:      addrBorrower,
		NftCollection: addrPunks,
		NftID:         big.NewInt(42),
		Amount:        big.NewInt(amount),
		Duration:      168,
		InterestBps:   500,
	})
}

func payment(loanID uint64, amount int64, resolved bool) domain.Event {
	return ev(domain.KindLoanPaymentMade, domain.LoanPaymentMade{
		LoanID:   loanID,
		Amount:   big.NewInt(amount),
		Resolved: resolved,
	})
}

func (h *harness) protocol(t *testing.T) domain.ProtocolInfo {
	t.Helper()
	proto, err := h.store.Protocol().Get(context.Background())
	require.NoError(t, err)
	return proto
}

func (h *harness) desk(t *testing.T, id uint64) domain.LendingDesk {
	t.Helper()
	desk, err := h.store.Desks().Get(context.Background(), id)
	require.NoError(t, err)
	return desk
}

func (h *harness) loan(t *testing.T, id uint64) domain.Loan {
	t.Helper()
	loan, err := h.store.Loans().Get(context.Background(), id)
	require.NoError(t, err)
	return loan
}

func (h *harness) user(t *testing.T, id string) domain.User {
	t.Helper()
	user, err := h.store.Users().Get(context.Background(), id)
	require.NoError(t, err)
	return user
}

func TestProtocolDeployment(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, protocolInit()))

	proto := h.protocol(t)
	assert.Equal(t, addrOwner, proto.Owner)
	assert.False(t, proto.Paused)
	assert.Equal(t, uint64(domain.DefaultLoanOriginationFeeBps), proto.LoanOriginationFeeBps)
	assert.Equal(t, domain.ZeroAddress, proto.PlatformWallet)
	assert.Zero(t, proto.LendingDesksCount)
	assert.Zero(t, proto.LoansCount)
}

func TestProtocolAdminUpdates(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		ev(domain.KindProtocolPauseSet, domain.ProtocolPauseSet{Paused: true}),
		ev(domain.KindLoanOriginationFeeSet, domain.LoanOriginationFeeSet{FeeBps: 150}),
		ev(domain.KindPlatformWalletSet, domain.PlatformWalletSet{Wallet: addrHolder}),
		ev(domain.KindProtocolOwnershipTransferred, domain.ProtocolOwnershipTransferred{
			PreviousOwner: addrOwner,
			NewOwner:      addrHolder,
		}),
	))

	proto := h.protocol(t)
	assert.True(t, proto.Paused)
	assert.Equal(t, uint64(150), proto.LoanOriginationFeeBps)
	assert.Equal(t, addrHolder, proto.PlatformWallet)
	assert.Equal(t, addrHolder, proto.Owner)
}

func TestProtocolEventsBeforeDeploymentDropped(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		ev(domain.KindProtocolPauseSet, domain.ProtocolPauseSet{Paused: true}),
		ev(domain.KindLoanOriginationFeeSet, domain.LoanOriginationFeeSet{FeeBps: 99}),
	))

	_, err := h.store.Protocol().Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDuplicateProtocolInitDropped(t *testing.T) {
	h := newHarness()
	second := ev(domain.KindProtocolOwnershipTransferred, domain.ProtocolOwnershipTransferred{
		PreviousOwner: domain.ZeroAddress,
		NewOwner:      addrHolder,
	})
	require.NoError(t, h.run(t, protocolInit(), second))

	assert.Equal(t, addrOwner, h.protocol(t).Owner)
}

func TestDeskInitialized(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks), terms(addrApes)),
	))

	desk := h.desk(t, 1)
	assert.Equal(t, domain.DeskStatusActive, desk.Status)
	assert.Equal(t, addrOwner, desk.Owner)
	assert.Equal(t, addrUSDC, desk.Erc20)
	assert.Equal(t, big.NewInt(1000), desk.Balance)

	proto := h.protocol(t)
	assert.Equal(t, int64(1), proto.LendingDesksCount)
	assert.Equal(t, int64(1), proto.Erc20sCount)
	assert.Equal(t, int64(2), proto.NftCollectionsCount)

	token, err := h.store.Erc20s().Get(context.Background(), addrUSDC)
	require.NoError(t, err)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, 1, h.meta.calls, "metadata fetched once per currency")

	configs, err := h.store.LoanConfigs().ListByDesk(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	for _, cfg := range configs {
		assert.True(t, cfg.Active)
	}
}

func TestSecondDeskSameCurrencyKeepsErc20Count(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 500, terms(addrPunks)),
		deskInit(2, 500, terms(addrPunks)),
	))

	proto := h.protocol(t)
	assert.Equal(t, int64(2), proto.LendingDesksCount)
	assert.Equal(t, int64(1), proto.Erc20sCount)
	assert.Equal(t, int64(1), proto.NftCollectionsCount)
	assert.Equal(t, 1, h.meta.calls)

	col, err := h.store.Collections().Get(context.Background(), addrPunks)
	require.NoError(t, err)
	assert.Equal(t, int64(2), col.ActiveLoanConfigsCount)
}

func TestMetadataFetchFailureHalts(t *testing.T) {
	h := newHarness()
	h.meta.fail = true

	err := h.run(t, protocolInit(), deskInit(1, 1000, terms(addrPunks)))
	assert.ErrorIs(t, err, domain.ErrMetadataFetch)
}

func TestLiquidityFlows(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindLiquidityDeposited, domain.LiquidityDeposited{DeskID: 1, Amount: big.NewInt(250)}),
		ev(domain.KindLiquidityWithdrawn, domain.LiquidityWithdrawn{DeskID: 1, Amount: big.NewInt(50)}),
	))

	assert.Equal(t, big.NewInt(1200), h.desk(t, 1).Balance)
}

func TestOverdraftHalts(t *testing.T) {
	h := newHarness()
	err := h.run(t,
		protocolInit(),
		deskInit(1, 100, terms(addrPunks)),
		ev(domain.KindLiquidityWithdrawn, domain.LiquidityWithdrawn{DeskID: 1, Amount: big.NewInt(101)}),
	)
	assert.ErrorIs(t, err, domain.ErrInvariantViolated)
}

func TestUnknownDeskEventDropped(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		ev(domain.KindLiquidityDeposited, domain.LiquidityDeposited{DeskID: 7, Amount: big.NewInt(250)}),
	))

	_, err := h.store.Desks().Get(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFreezeUnfreezeRoundTrip(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks), terms(addrApes)),
	))
	before := h.protocol(t)

	require.NoError(t, h.run(t,
		ev(domain.KindDeskStateSet, domain.DeskStateSet{DeskID: 1, Freeze: true}),
	))

	assert.Equal(t, domain.DeskStatusFrozen, h.desk(t, 1).Status)
	proto := h.protocol(t)
	assert.Zero(t, proto.LendingDesksCount)
	assert.Zero(t, proto.Erc20sCount)
	assert.Zero(t, proto.NftCollectionsCount)
	configs, err := h.store.LoanConfigs().ListByDesk(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	for _, cfg := range configs {
		assert.False(t, cfg.Active)
	}

	require.NoError(t, h.run(t,
		ev(domain.KindDeskStateSet, domain.DeskStateSet{DeskID: 1, Freeze: false}),
	))

	assert.Equal(t, domain.DeskStatusActive, h.desk(t, 1).Status)
	after := h.protocol(t)
	assert.Equal(t, before.LendingDesksCount, after.LendingDesksCount)
	assert.Equal(t, before.Erc20sCount, after.Erc20sCount)
	assert.Equal(t, before.NftCollectionsCount, after.NftCollectionsCount)
	configs, err = h.store.LoanConfigs().ListByDesk(context.Background(), 1)
	require.NoError(t, err)
	for _, cfg := range configs {
		assert.True(t, cfg.Active)
	}
}

func TestRedundantStateSetIsNoop(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindDeskStateSet, domain.DeskStateSet{DeskID: 1, Freeze: false}),
	))

	proto := h.protocol(t)
	assert.Equal(t, int64(1), proto.LendingDesksCount)
	assert.Equal(t, int64(1), proto.Erc20sCount)
}

func TestDissolveIsTerminal(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindDeskDissolved, domain.DeskDissolved{DeskID: 1}),
		// Everything after the dissolve must be dropped.
		ev(domain.KindLiquidityDeposited, domain.LiquidityDeposited{DeskID: 1, Amount: big.NewInt(500)}),
		ev(domain.KindLiquidityWithdrawn, domain.LiquidityWithdrawn{DeskID: 1, Amount: big.NewInt(200)}),
		ev(domain.KindDeskOwnershipTransferred, domain.DeskOwnershipTransferred{DeskID: 1, NewOwner: addrHolder}),
		ev(domain.KindLoanConfigRemoved, domain.LoanConfigRemoved{DeskID: 1, NftCollection: addrPunks}),
		originate(7, 1, 300),
		ev(domain.KindDeskStateSet, domain.DeskStateSet{DeskID: 1, Freeze: true}),
		ev(domain.KindDeskDissolved, domain.DeskDissolved{DeskID: 1}),
	))

	desk := h.desk(t, 1)
	assert.Equal(t, domain.DeskStatusDissolved, desk.Status)
	assert.Equal(t, big.NewInt(1000), desk.Balance)
	assert.Equal(t, addrOwner, desk.Owner)
	assert.Zero(t, desk.LoansCount)

	_, err := h.store.LoanConfigs().Get(context.Background(), 1, addrPunks)
	assert.NoError(t, err, "config removal on a dissolved desk must be dropped")
	_, err = h.store.Loans().Get(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "origination against a dissolved desk must be dropped")

	proto := h.protocol(t)
	assert.Zero(t, proto.LendingDesksCount)
	assert.Zero(t, proto.LoansCount)
}

func TestDissolveFrozenDeskKeepsCounters(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindDeskStateSet, domain.DeskStateSet{DeskID: 1, Freeze: true}),
		ev(domain.KindDeskDissolved, domain.DeskDissolved{DeskID: 1}),
	))

	// The freeze already retracted the desk; the dissolve must not double
	// decrement.
	assert.Zero(t, h.protocol(t).LendingDesksCount)
}

func TestLoanConfigsSetReusesCollection(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindLoanConfigsSet, domain.LoanConfigsSet{
			DeskID:      1,
			LoanConfigs: []domain.LoanConfigTerms{terms(addrPunks), terms(addrApes)},
		}),
	))

	// Re-setting an already active config must not inflate the counts.
	col, err := h.store.Collections().Get(context.Background(), addrPunks)
	require.NoError(t, err)
	assert.Equal(t, int64(1), col.ActiveLoanConfigsCount)
	assert.Equal(t, int64(2), h.protocol(t).NftCollectionsCount)
}

func TestLoanConfigRemoved(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindLoanConfigRemoved, domain.LoanConfigRemoved{DeskID: 1, NftCollection: addrPunks}),
	))

	_, err := h.store.LoanConfigs().Get(context.Background(), 1, addrPunks)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	col, err := h.store.Collections().Get(context.Background(), addrPunks)
	require.NoError(t, err)
	assert.Zero(t, col.ActiveLoanConfigsCount)
	assert.Zero(t, h.protocol(t).NftCollectionsCount)
}

func TestDeskOwnershipTransferred(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		ev(domain.KindDeskOwnershipTransferred, domain.DeskOwnershipTransferred{DeskID: 1, NewOwner: addrHolder}),
	))

	assert.Equal(t, addrHolder, h.desk(t, 1).Owner)
	assert.Equal(t, addrHolder, h.user(t, addrHolder).ID)
}

func TestLoanResolved(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		originate(10, 1, 400),
	))

	desk := h.desk(t, 1)
	assert.Equal(t, big.NewInt(600), desk.Balance)
	assert.Equal(t, big.NewInt(400), desk.AmountBorrowed)
	assert.Equal(t, big.NewInt(400), desk.NetLiquidityIssued)
	assert.Equal(t, int64(1), desk.LoansCount)

	loan := h.loan(t, 10)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, addrOwner, loan.Lender)
	assert.Equal(t, addrBorrower, loan.Borrower)

	assert.Equal(t, int64(1), h.protocol(t).LoansCount)
	assert.Equal(t, int64(1), h.user(t, addrOwner).LoansIssuedCount)
	assert.Equal(t, int64(1), h.user(t, addrBorrower).LoansTakenCount)

	require.NoError(t, h.run(t,
		payment(10, 150, false),
		payment(10, 250, true),
	))

	loan = h.loan(t, 10)
	assert.Equal(t, domain.LoanStatusResolved, loan.Status)
	assert.Equal(t, big.NewInt(400), loan.AmountPaidBack)

	desk = h.desk(t, 1)
	assert.Equal(t, big.NewInt(1000), desk.Balance)
	assert.Zero(t, desk.AmountBorrowed.Sign())
	assert.Equal(t, int64(1), desk.LoansResolvedCount)
	assert.Equal(t, big.NewInt(400), desk.NetLiquidityIssued)

	// Further events against the resolved loan are dropped.
	require.NoError(t, h.run(t, payment(10, 1, false)))
	assert.Equal(t, big.NewInt(400), h.loan(t, 10).AmountPaidBack)
}

func TestPaymentCountersAdvancePerEvent(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		originate(10, 1, 400),
		payment(10, 100, false),
		payment(10, 100, false),
	))

	assert.Equal(t, int64(2), h.user(t, addrOwner).LoansIssuedResolvedCount)
	assert.Equal(t, int64(2), h.user(t, addrBorrower).LoansTakenResolvedCount)
}

func TestLoanDefaulted(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		originate(10, 1, 400),
		payment(10, 100, false),
		ev(domain.KindDefaultedLoanLiquidated, domain.DefaultedLoanLiquidated{LoanID: 10}),
	))

	loan := h.loan(t, 10)
	assert.Equal(t, domain.LoanStatusDefaulted, loan.Status)
	assert.Equal(t, big.NewInt(100), loan.AmountPaidBack)

	desk := h.desk(t, 1)
	assert.Equal(t, int64(1), desk.LoansDefaultedCount)
	assert.Zero(t, desk.AmountBorrowed.Sign())
	assert.Equal(t, big.NewInt(-300), desk.NetProfit)

	assert.Equal(t, int64(1), h.user(t, addrOwner).LoansIssuedDefaultedCount)
	assert.Equal(t, int64(1), h.user(t, addrBorrower).LoansTakenDefaultedCount)
}

func TestOverpaymentHalts(t *testing.T) {
	h := newHarness()
	err := h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		originate(10, 1, 400),
		payment(10, 500, false),
	)
	assert.ErrorIs(t, err, domain.ErrInvariantViolated)
}

func TestOriginationOverdraftHalts(t *testing.T) {
	h := newHarness()
	err := h.run(t,
		protocolInit(),
		deskInit(1, 100, terms(addrPunks)),
		originate(10, 1, 400),
	)
	assert.ErrorIs(t, err, domain.ErrInvariantViolated)
}

func TestUnknownLoanEventDropped(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		payment(99, 100, false),
		ev(domain.KindDefaultedLoanLiquidated, domain.DefaultedLoanLiquidated{LoanID: 99}),
	))

	_, err := h.store.Loans().Get(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoanPartyTransferred(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t,
		protocolInit(),
		deskInit(1, 1000, terms(addrPunks)),
		originate(10, 1, 400),
		ev(domain.KindLoanPartyTransferred, domain.LoanPartyTransferred{
			LoanID: 10, NewHolder: addrHolder, Role: domain.LoanRoleLender,
		}),
		ev(domain.KindDefaultedLoanLiquidated, domain.DefaultedLoanLiquidated{LoanID: 10}),
	))

	loan := h.loan(t, 10)
	assert.Equal(t, addrHolder, loan.Lender)
	// Default counters attribute to the holder at default time, not the
	// original lender.
	assert.Equal(t, int64(1), h.user(t, addrHolder).LoansIssuedDefaultedCount)
	assert.Zero(t, h.user(t, addrOwner).LoansIssuedDefaultedCount)
}

func TestOutOfOrderHalts(t *testing.T) {
	h := newHarness()
	events := []domain.Event{protocolInit(), protocolInit()}
	events[0].Position = domain.Position{Block: 5}
	events[1].Position = domain.Position{Block: 5}

	err := h.p.Run(context.Background(), &sliceFeed{events: events})
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)
}

func TestReplayBelowCheckpointSkipped(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.Apply(context.Background(), func(tx domain.EntityTx) error {
		return tx.SetCheckpoint(context.Background(), domain.Position{Block: 10})
	}))

	replayed := protocolInit()
	replayed.Position = domain.Position{Block: 5}
	fresh := ev(domain.KindProtocolOwnershipTransferred, domain.ProtocolOwnershipTransferred{
		PreviousOwner: domain.ZeroAddress,
		NewOwner:      addrHolder,
	})
	fresh.Position = domain.Position{Block: 11}

	require.NoError(t, h.p.Run(context.Background(), &sliceFeed{events: []domain.Event{replayed, fresh}}))

	assert.Equal(t, addrHolder, h.protocol(t).Owner, "only the post-checkpoint event applies")
}

func TestCheckpointAdvancesWithLastEvent(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, protocolInit(), deskInit(1, 0, terms(addrPunks))))

	cp, ok, err := h.store.Checkpoint(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), cp.Block)
}

func TestUnknownPayloadHalts(t *testing.T) {
	h := newHarness()
	err := h.run(t, ev("bogus", struct{ X int }{1}))
	assert.Error(t, err)
}
