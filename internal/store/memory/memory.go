// Package memory implements the domain store interfaces with an in-process
// snapshot store. Apply clones the committed state, runs the unit of work
// against the clone, and swaps it in atomically, so readers never observe a
// half-applied event. Used by handler tests and dry-run verification.
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

type state struct {
	protocol    *domain.ProtocolInfo
	erc20s      map[string]domain.Erc20
	collections map[string]domain.NftCollection
	desks       map[uint64]domain.LendingDesk
	loanConfigs map[string]domain.LoanConfig
	loans       map[uint64]domain.Loan
	users       map[string]domain.User
	checkpoint  *domain.Position
}

func newState() *state {
	return &state{
		erc20s:      make(map[string]domain.Erc20),
		collections: make(map[string]domain.NftCollection),
		desks:       make(map[uint64]domain.LendingDesk),
		loanConfigs: make(map[string]domain.LoanConfig),
		loans:       make(map[uint64]domain.Loan),
		users:       make(map[string]domain.User),
	}
}

func (st *state) clone() *state {
	next := newState()
	if st.protocol != nil {
		p := *st.protocol
		next.protocol = &p
	}
	for k, v := range st.erc20s {
		next.erc20s[k] = v
	}
	for k, v := range st.collections {
		next.collections[k] = v
	}
	for k, v := range st.desks {
		next.desks[k] = cloneDesk(v)
	}
	for k, v := range st.loanConfigs {
		next.loanConfigs[k] = cloneConfig(v)
	}
	for k, v := range st.loans {
		next.loans[k] = cloneLoan(v)
	}
	for k, v := range st.users {
		next.users[k] = v
	}
	if st.checkpoint != nil {
		cp := *st.checkpoint
		next.checkpoint = &cp
	}
	return next
}

func cloneBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

func cloneDesk(d domain.LendingDesk) domain.LendingDesk {
	d.Balance = cloneBig(d.Balance)
	d.NetLiquidityIssued = cloneBig(d.NetLiquidityIssued)
	d.NetProfit = cloneBig(d.NetProfit)
	d.AmountBorrowed = cloneBig(d.AmountBorrowed)
	return d
}

func cloneConfig(c domain.LoanConfig) domain.LoanConfig {
	c.MinAmount = cloneBig(c.MinAmount)
	c.MaxAmount = cloneBig(c.MaxAmount)
	return c
}

func cloneLoan(l domain.Loan) domain.Loan {
	l.NftID = cloneBig(l.NftID)
	l.Amount = cloneBig(l.Amount)
	l.AmountPaidBack = cloneBig(l.AmountPaidBack)
	return l
}

// Store is the in-memory implementation of domain.Store.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Checkpoint returns the last committed event position.
func (s *Store) Checkpoint(ctx context.Context) (domain.Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.checkpoint == nil {
		return domain.Position{}, false, nil
	}
	return *s.st.checkpoint, true, nil
}

// Apply runs fn against a clone of the committed state and swaps the clone
// in only when fn succeeds.
func (s *Store) Apply(ctx context.Context, fn func(tx domain.EntityTx) error) error {
	s.mu.RLock()
	staged := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&entityTx{st: staged}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = staged
	s.mu.Unlock()
	return nil
}

// snapshot returns the current committed state. Writers never mutate a
// committed snapshot, so views built on it are point-in-time consistent.
func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// Read-side accessors over the committed snapshot at call time.

func (s *Store) Protocol() domain.ProtocolStore { return protocolStore{s.snapshot()} }

func (s *Store) Erc20s() domain.Erc20Store { return erc20Store{s.snapshot()} }

func (s *Store) Collections() domain.NftCollectionStore { return collectionStore{s.snapshot()} }

func (s *Store) Desks() domain.LendingDeskStore { return deskStore{s.snapshot()} }

func (s *Store) LoanConfigs() domain.LoanConfigStore { return loanConfigStore{s.snapshot()} }

func (s *Store) Loans() domain.LoanStore { return loanStore{s.snapshot()} }

func (s *Store) Users() domain.UserStore { return userStore{s.snapshot()} }

type entityTx struct {
	st *state
}

func (t *entityTx) Protocol() domain.ProtocolStore { return protocolStore{t.st} }

func (t *entityTx) Erc20s() domain.Erc20Store { return erc20Store{t.st} }

func (t *entityTx) Collections() domain.NftCollectionStore { return collectionStore{t.st} }

func (t *entityTx) Desks() domain.LendingDeskStore { return deskStore{t.st} }

func (t *entityTx) LoanConfigs() domain.LoanConfigStore { return loanConfigStore{t.st} }

func (t *entityTx) Loans() domain.LoanStore { return loanStore{t.st} }

func (t *entityTx) Users() domain.UserStore { return userStore{t.st} }

func (t *entityTx) SetCheckpoint(ctx context.Context, pos domain.Position) error {
	t.st.checkpoint = &pos
	return nil
}

type protocolStore struct{ st *state }

func (s protocolStore) Get(ctx context.Context) (domain.ProtocolInfo, error) {
	if s.st.protocol == nil {
		return domain.ProtocolInfo{}, domain.ErrNotFound
	}
	return *s.st.protocol, nil
}

func (s protocolStore) Create(ctx context.Context, info domain.ProtocolInfo) error {
	if s.st.protocol != nil {
		return fmt.Errorf("memory: protocol info already exists")
	}
	s.st.protocol = &info
	return nil
}

func (s protocolStore) Update(ctx context.Context, info domain.ProtocolInfo) error {
	if s.st.protocol == nil {
		return domain.ErrNotFound
	}
	s.st.protocol = &info
	return nil
}

type erc20Store struct{ st *state }

func (s erc20Store) Get(ctx context.Context, id string) (domain.Erc20, error) {
	token, ok := s.st.erc20s[id]
	if !ok {
		return domain.Erc20{}, domain.ErrNotFound
	}
	return token, nil
}

func (s erc20Store) Create(ctx context.Context, token domain.Erc20) error {
	if _, ok := s.st.erc20s[token.ID]; ok {
		return fmt.Errorf("memory: erc20 %s already exists", token.ID)
	}
	s.st.erc20s[token.ID] = token
	return nil
}

func (s erc20Store) List(ctx context.Context) ([]domain.Erc20, error) {
	out := make([]domain.Erc20, 0, len(s.st.erc20s))
	for _, v := range s.st.erc20s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type collectionStore struct{ st *state }

func (s collectionStore) Get(ctx context.Context, id string) (domain.NftCollection, error) {
	col, ok := s.st.collections[id]
	if !ok {
		return domain.NftCollection{}, domain.ErrNotFound
	}
	return col, nil
}

func (s collectionStore) Create(ctx context.Context, col domain.NftCollection) error {
	if _, ok := s.st.collections[col.ID]; ok {
		return fmt.Errorf("memory: collection %s already exists", col.ID)
	}
	s.st.collections[col.ID] = col
	return nil
}

func (s collectionStore) Update(ctx context.Context, col domain.NftCollection) error {
	if _, ok := s.st.collections[col.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.collections[col.ID] = col
	return nil
}

func (s collectionStore) List(ctx context.Context) ([]domain.NftCollection, error) {
	out := make([]domain.NftCollection, 0, len(s.st.collections))
	for _, v := range s.st.collections {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type deskStore struct{ st *state }

func (s deskStore) Get(ctx context.Context, id uint64) (domain.LendingDesk, error) {
	desk, ok := s.st.desks[id]
	if !ok {
		return domain.LendingDesk{}, domain.ErrNotFound
	}
	return cloneDesk(desk), nil
}

func (s deskStore) Create(ctx context.Context, desk domain.LendingDesk) error {
	if _, ok := s.st.desks[desk.ID]; ok {
		return fmt.Errorf("memory: desk %d already exists", desk.ID)
	}
	s.st.desks[desk.ID] = cloneDesk(desk)
	return nil
}

func (s deskStore) Update(ctx context.Context, desk domain.LendingDesk) error {
	if _, ok := s.st.desks[desk.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.desks[desk.ID] = cloneDesk(desk)
	return nil
}

func (s deskStore) ListByErc20(ctx context.Context, erc20 string) ([]domain.LendingDesk, error) {
	var out []domain.LendingDesk
	for _, d := range s.st.desks {
		if d.Erc20 == erc20 {
			out = append(out, cloneDesk(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s deskStore) CountActiveByErc20(ctx context.Context, erc20 string) (int64, error) {
	var n int64
	for _, d := range s.st.desks {
		if d.Erc20 == erc20 && d.Status == domain.DeskStatusActive {
			n++
		}
	}
	return n, nil
}

type loanConfigStore struct{ st *state }

func configKey(deskID uint64, collection string) string {
	return domain.LoanConfig{LendingDeskID: deskID, NftCollection: collection}.ID()
}

func (s loanConfigStore) Get(ctx context.Context, deskID uint64, collection string) (domain.LoanConfig, error) {
	cfg, ok := s.st.loanConfigs[configKey(deskID, collection)]
	if !ok {
		return domain.LoanConfig{}, domain.ErrNotFound
	}
	return cloneConfig(cfg), nil
}

func (s loanConfigStore) Upsert(ctx context.Context, cfg domain.LoanConfig) error {
	s.st.loanConfigs[cfg.ID()] = cloneConfig(cfg)
	return nil
}

func (s loanConfigStore) Delete(ctx context.Context, deskID uint64, collection string) error {
	key := configKey(deskID, collection)
	if _, ok := s.st.loanConfigs[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.st.loanConfigs, key)
	return nil
}

func (s loanConfigStore) ListByDesk(ctx context.Context, deskID uint64) ([]domain.LoanConfig, error) {
	var out []domain.LoanConfig
	for _, c := range s.st.loanConfigs {
		if c.LendingDeskID == deskID {
			out = append(out, cloneConfig(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NftCollection < out[j].NftCollection })
	return out, nil
}

func (s loanConfigStore) CountActiveByCollection(ctx context.Context, collection string) (int64, error) {
	var n int64
	for _, c := range s.st.loanConfigs {
		if c.NftCollection == collection && c.Active {
			n++
		}
	}
	return n, nil
}

type loanStore struct{ st *state }

func (s loanStore) Get(ctx context.Context, id uint64) (domain.Loan, error) {
	loan, ok := s.st.loans[id]
	if !ok {
		return domain.Loan{}, domain.ErrNotFound
	}
	return cloneLoan(loan), nil
}

func (s loanStore) Create(ctx context.Context, loan domain.Loan) error {
	if _, ok := s.st.loans[loan.ID]; ok {
		return fmt.Errorf("memory: loan %d already exists", loan.ID)
	}
	s.st.loans[loan.ID] = cloneLoan(loan)
	return nil
}

func (s loanStore) Update(ctx context.Context, loan domain.Loan) error {
	if _, ok := s.st.loans[loan.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.loans[loan.ID] = cloneLoan(loan)
	return nil
}

func (s loanStore) ListByDesk(ctx context.Context, deskID uint64) ([]domain.Loan, error) {
	var out []domain.Loan
	for _, l := range s.st.loans {
		if l.LendingDeskID == deskID {
			out = append(out, cloneLoan(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s loanStore) ListByBorrower(ctx context.Context, borrower string) ([]domain.Loan, error) {
	var out []domain.Loan
	for _, l := range s.st.loans {
		if l.Borrower == borrower {
			out = append(out, cloneLoan(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type userStore struct{ st *state }

func (s userStore) Get(ctx context.Context, id string) (domain.User, error) {
	user, ok := s.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (s userStore) Create(ctx context.Context, user domain.User) error {
	if _, ok := s.st.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s already exists", user.ID)
	}
	s.st.users[user.ID] = user
	return nil
}

func (s userStore) Update(ctx context.Context, user domain.User) error {
	if _, ok := s.st.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.users[user.ID] = user
	return nil
}
