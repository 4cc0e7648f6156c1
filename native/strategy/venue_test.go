package strategy

import (
	"errors"
	"math/big"
	"testing"

	"restakevault/native/vault"
)

type mockVenueState struct {
	positions map[[20]byte]*Position
	totals    *Totals
	queued    map[[32]byte]*QueuedWithdrawal
}

func newMockVenueState() *mockVenueState {
	return &mockVenueState{
		positions: make(map[[20]byte]*Position),
		queued:    make(map[[32]byte]*QueuedWithdrawal),
	}
}

func (m *mockVenueState) StrategyPosition(holder [20]byte) (*Position, bool, error) {
	position, ok := m.positions[holder]
	if !ok {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}

func (m *mockVenueState) PutStrategyPosition(holder [20]byte, position *Position) error {
	m.positions[holder] = position.Clone()
	return nil
}

func (m *mockVenueState) StrategyTotals() (*Totals, error) {
	if m.totals == nil {
		return nil, nil
	}
	return m.totals.Clone(), nil
}

func (m *mockVenueState) PutStrategyTotals(totals *Totals) error {
	m.totals = totals.Clone()
	return nil
}

func (m *mockVenueState) QueuedWithdrawal(root [32]byte) (*QueuedWithdrawal, bool, error) {
	queued, ok := m.queued[root]
	if !ok {
		return nil, false, nil
	}
	return queued.Clone(), true, nil
}

func (m *mockVenueState) PutQueuedWithdrawal(root [32]byte, withdrawal *QueuedWithdrawal) error {
	m.queued[root] = withdrawal.Clone()
	return nil
}

func (m *mockVenueState) DeleteQueuedWithdrawal(root [32]byte) error {
	delete(m.queued, root)
	return nil
}

type mockLedger struct {
	balances   map[[20]byte]*big.Int
	allowances map[[40]byte]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[40]byte]*big.Int),
	}
}

func allowKey(owner, spender [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], owner[:])
	copy(key[20:], spender[:])
	return key
}

func (m *mockLedger) credit(addr [20]byte, amount int64) {
	m.balances[addr] = new(big.Int).Add(m.balance(addr), big.NewInt(amount))
}

func (m *mockLedger) approve(owner, spender [20]byte, amount int64) {
	m.allowances[allowKey(owner, spender)] = big.NewInt(amount)
}

func (m *mockLedger) balance(addr [20]byte) *big.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (m *mockLedger) BalanceOf(holder [20]byte) (*big.Int, error) {
	return new(big.Int).Set(m.balance(holder)), nil
}

func (m *mockLedger) TransferFrom(from, to [20]byte, amount *big.Int) error {
	if m.balance(from).Cmp(amount) < 0 {
		return errors.New("mock: insufficient balance")
	}
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.balances[to] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

func (m *mockLedger) SpendAllowance(owner, spender [20]byte, amount *big.Int) error {
	current, ok := m.allowances[allowKey(owner, spender)]
	if !ok || current.Cmp(amount) < 0 {
		return errors.New("mock: insufficient allowance")
	}
	m.allowances[allowKey(owner, spender)] = new(big.Int).Sub(current, amount)
	return nil
}

var (
	venueAddr  = [20]byte{0x10}
	stakerAddr = [20]byte{0x20}
	yieldAddr  = [20]byte{0x30}
	strategyID = [32]byte{0x01}
)

func newVenueFixture(t *testing.T) (*Venue, *mockVenueState, *mockLedger) {
	t.Helper()
	state := newMockVenueState()
	ledger := newMockLedger()
	venue := NewVenue(venueAddr)
	venue.SetState(state)
	venue.SetCollateral(ledger)
	venue.SetNowFunc(func() int64 { return 1_700_000_000 })
	return venue, state, ledger
}

func depositShares(t *testing.T, venue *Venue, ledger *mockLedger, amount int64) *big.Int {
	t.Helper()
	ledger.credit(stakerAddr, amount)
	ledger.approve(stakerAddr, venueAddr, amount)
	shares, err := venue.DepositIntoStrategy(strategyID, stakerAddr, big.NewInt(amount))
	if err != nil {
		t.Fatalf("deposit %d: %v", amount, err)
	}
	return shares
}

func TestDepositIntoStrategyBootstrapsOneToOne(t *testing.T) {
	venue, _, ledger := newVenueFixture(t)
	shares := depositShares(t, venue, ledger, 100)
	if shares.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("bootstrap shares = %s, want 100", shares)
	}
	if got := ledger.balance(venueAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("venue custody = %s, want 100", got)
	}
}

func TestDepositIntoStrategyRequiresAllowance(t *testing.T) {
	venue, _, ledger := newVenueFixture(t)
	ledger.credit(stakerAddr, 100)
	if _, err := venue.DepositIntoStrategy(strategyID, stakerAddr, big.NewInt(100)); err == nil {
		t.Fatal("expected deposit without allowance to fail")
	}
}

func TestCreditYieldLiftsExchangeRate(t *testing.T) {
	venue, _, ledger := newVenueFixture(t)
	depositShares(t, venue, ledger, 100)

	ledger.credit(yieldAddr, 50)
	if err := venue.CreditYield(yieldAddr, big.NewInt(50)); err != nil {
		t.Fatalf("credit yield: %v", err)
	}

	underlying, err := venue.UserUnderlying(stakerAddr)
	if err != nil {
		t.Fatalf("user underlying: %v", err)
	}
	if underlying.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("user underlying = %s, want 150", underlying)
	}

	// A second depositor now gets fewer shares for the same amount.
	ledger.credit(yieldAddr, 75)
	ledger.balances[stakerAddr] = big.NewInt(0)
	ledger.credit(stakerAddr, 75)
	ledger.approve(stakerAddr, venueAddr, 75)
	shares, err := venue.DepositIntoStrategy(strategyID, stakerAddr, big.NewInt(75))
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if shares.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("post-yield shares = %s, want 50", shares)
	}
}

func TestWithdrawalRootIsDeterministic(t *testing.T) {
	venue, _, _ := newVenueFixture(t)
	descriptor := &vault.WithdrawalDescriptor{
		Staker:     stakerAddr,
		Withdrawer: stakerAddr,
		Nonce:      3,
		StartTime:  1_700_000_000,
		Strategies: [][32]byte{strategyID},
		Shares:     []*big.Int{big.NewInt(40)},
	}
	first, err := venue.CalculateWithdrawalRoot(descriptor)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	second, err := venue.CalculateWithdrawalRoot(descriptor.Clone())
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if first != second {
		t.Fatal("equal descriptors produced different roots")
	}

	changed := descriptor.Clone()
	changed.Nonce = 4
	third, err := venue.CalculateWithdrawalRoot(changed)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if first == third {
		t.Fatal("different descriptors produced equal roots")
	}

	if _, err := venue.CalculateWithdrawalRoot(nil); !errors.Is(err, errNilDescriptor) {
		t.Fatalf("nil descriptor err = %v, want errNilDescriptor", err)
	}
}

func TestQueueWithdrawalReservesUnderlying(t *testing.T) {
	venue, state, ledger := newVenueFixture(t)
	depositShares(t, venue, ledger, 100)
	ledger.credit(yieldAddr, 50)
	if err := venue.CreditYield(yieldAddr, big.NewInt(50)); err != nil {
		t.Fatalf("credit yield: %v", err)
	}

	descriptor, root, err := venue.QueueWithdrawal(stakerAddr, strategyID, big.NewInt(40))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if descriptor.Nonce != 0 {
		t.Fatalf("first nonce = %d, want 0", descriptor.Nonce)
	}
	queued, ok := state.queued[root]
	if !ok {
		t.Fatal("withdrawal not recorded under root")
	}
	// 40 shares at 1.5 underlying each.
	if queued.Underlying.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("reserved underlying = %s, want 60", queued.Underlying)
	}

	remaining, err := venue.UserUnderlying(stakerAddr)
	if err != nil {
		t.Fatalf("user underlying: %v", err)
	}
	if remaining.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("remaining underlying = %s, want 90", remaining)
	}
}

func TestQueueWithdrawalRejectsOverdraw(t *testing.T) {
	venue, _, ledger := newVenueFixture(t)
	depositShares(t, venue, ledger, 10)
	if _, _, err := venue.QueueWithdrawal(stakerAddr, strategyID, big.NewInt(11)); !errors.Is(err, errInsufficientShares) {
		t.Fatalf("overdraw err = %v, want errInsufficientShares", err)
	}
}

func TestCompleteQueuedWithdrawalPaysReservedValue(t *testing.T) {
	venue, _, ledger := newVenueFixture(t)
	depositShares(t, venue, ledger, 100)

	descriptor, _, err := venue.QueueWithdrawal(stakerAddr, strategyID, big.NewInt(40))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := venue.CompleteQueuedWithdrawal(descriptor, nil, 0, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := ledger.balance(stakerAddr); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("withdrawer balance = %s, want 40", got)
	}

	if err := venue.CompleteQueuedWithdrawal(descriptor, nil, 0, true); !errors.Is(err, errUnknownWithdrawal) {
		t.Fatalf("second completion err = %v, want errUnknownWithdrawal", err)
	}
}

func TestCompleteQueuedWithdrawalWithoutTokensKeepsCustody(t *testing.T) {
	venue, _, ledger := newVenueFixture(t)
	depositShares(t, venue, ledger, 100)

	descriptor, _, err := venue.QueueWithdrawal(stakerAddr, strategyID, big.NewInt(40))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := venue.CompleteQueuedWithdrawal(descriptor, nil, 0, false); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := ledger.balance(stakerAddr); got.Sign() != 0 {
		t.Fatalf("withdrawer balance = %s, want 0", got)
	}
	if got := ledger.balance(venueAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("venue custody = %s, want 100", got)
	}
}
