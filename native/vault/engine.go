package vault

import (
	"math/big"
	"time"

	"restakevault/core/events"
	"restakevault/core/types"
	nativecommon "restakevault/native/common"
)

// engineState describes the persistence surface the vault engine requires from
// the surrounding state implementation.
type engineState interface {
	VaultState() (*State, error)
	PutVaultState(*State) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	PointRecord(addr [20]byte) (*PointRecord, bool, error)
	PutPointRecord(addr [20]byte, record *PointRecord) error
	RewardRecord(addr [20]byte) (*RewardRecord, bool, error)
	PutRewardRecord(addr [20]byte, record *RewardRecord) error
	CustodianWithdrawalOutstanding(id *big.Int) (bool, error)
	SetCustodianWithdrawalOutstanding(id *big.Int, outstanding bool) error
	StrategyWithdrawalOutstanding(root [32]byte) (bool, error)
	SetStrategyWithdrawalOutstanding(root [32]byte, outstanding bool) error
}

// CollateralToken is the deposited staked-ETH derivative consumed by the vault.
type CollateralToken interface {
	BalanceOf(holder [20]byte) (*big.Int, error)
	TransferFrom(from, to [20]byte, amount *big.Int) error
	IncreaseAllowance(owner, spender [20]byte, amount *big.Int) error
}

// RewardToken is the token streamed to share holders.
type RewardToken interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// StrategyVenue is the secondary yield venue the vault delegates collateral to.
// It keeps its own share accounting and withdrawal queue.
type StrategyVenue interface {
	DepositIntoStrategy(strategyID [32]byte, depositor [20]byte, amount *big.Int) (*big.Int, error)
	UserUnderlying(holder [20]byte) (*big.Int, error)
	SharesToUnderlyingView(shares *big.Int) (*big.Int, error)
	QueueWithdrawal(staker [20]byte, strategyID [32]byte, shares *big.Int) (*WithdrawalDescriptor, [32]byte, error)
	CalculateWithdrawalRoot(descriptor *WithdrawalDescriptor) ([32]byte, error)
	CompleteQueuedWithdrawal(descriptor *WithdrawalDescriptor, tokens [][20]byte, middlewareIndex uint64, receiveAsTokens bool) error
}

// CustodianQueue is the primary custodian's withdrawal queue.
type CustodianQueue interface {
	ClaimWithdrawal(requestID *big.Int) error
}

// Engine orchestrates the vault's accounting state transitions. All mutating
// operations run under a single-flight reentrancy marker and checkpoint the
// accrual ledgers before any balance changes.
type Engine struct {
	state           engineState
	emitter         events.Emitter
	collateral      CollateralToken
	rewardToken     RewardToken
	strategy        StrategyVenue
	custodian       CustodianQueue
	moduleAddress   [20]byte
	rewardSource    [20]byte
	operator        [20]byte
	strategyID      [32]byte
	strategyAddress [20]byte
	duration        uint64
	pauses          nativecommon.PauseView
	nowFn           func() int64

	busy              bool
	claimingCustodian bool
}

// NewEngine constructs a vault engine bound to the vault module account. The
// reward period defaults to DefaultRewardsDuration and events are discarded
// until an emitter is configured.
func NewEngine(moduleAddr [20]byte) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		duration:      DefaultRewardsDuration,
		emitter:       events.NoopEmitter{},
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollaborators wires the four external systems the engine consumes.
func (e *Engine) SetCollaborators(collateral CollateralToken, reward RewardToken, strategy StrategyVenue, custodian CustodianQueue) {
	if e == nil {
		return
	}
	e.collateral = collateral
	e.rewardToken = reward
	e.strategy = strategy
	e.custodian = custodian
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetOperator configures the address allowed to call privileged operations.
func (e *Engine) SetOperator(addr [20]byte) {
	if e == nil {
		return
	}
	e.operator = addr
}

// SetRewardSource configures the treasury account reward funding is pulled from.
func (e *Engine) SetRewardSource(addr [20]byte) {
	if e == nil {
		return
	}
	e.rewardSource = addr
}

// SetStrategyID assigns the venue strategy delegations are routed to.
func (e *Engine) SetStrategyID(id [32]byte) {
	if e == nil {
		return
	}
	e.strategyID = id
}

// SetStrategyAddress records the venue's pull account used for collateral
// allowance bookkeeping ahead of delegation.
func (e *Engine) SetStrategyAddress(addr [20]byte) {
	if e == nil {
		return
	}
	e.strategyAddress = addr
}

// SetRewardsDuration overrides the reward streaming period, in seconds. Zero is
// ignored.
func (e *Engine) SetRewardsDuration(seconds uint64) {
	if e == nil || seconds == 0 {
		return
	}
	e.duration = seconds
}

// SetPauses wires the module pause view honored by mutating operations.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// ModuleAddress returns the vault's own account address.
func (e *Engine) ModuleAddress() [20]byte {
	if e == nil {
		return [20]byte{}
	}
	return e.moduleAddress
}

// ClaimInProgress reports whether a custodian claim is currently executing, so
// fund-receipt logic can distinguish claim proceeds from unsolicited transfers.
func (e *Engine) ClaimInProgress() bool {
	if e == nil {
		return false
	}
	return e.claimingCustodian
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// enter acquires the single-flight marker guarding mutating operations against
// reentrancy from collaborator callbacks. The returned release must run when
// the operation finishes.
func (e *Engine) enter() (func(), error) {
	if e.busy {
		return nil, ErrReentrantCall
	}
	e.busy = true
	return func() { e.busy = false }, nil
}

func (e *Engine) guardMutate() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) requireOperator(caller [20]byte) error {
	if e.operator == ([20]byte{}) || caller != e.operator {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) loadState() (*State, error) {
	st, err := e.state.VaultState()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = NewState()
	}
	st.EnsureDefaults()
	return st, nil
}

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &types.Account{}
	}
	account.EnsureDefaults()
	return account, nil
}

// Deposit pulls collateral from the depositor, mints proportional shares to the
// receiver and checkpoints both accrual ledgers for the receiver. The minted
// share amount is returned for downstream accounting.
func (e *Engine) Deposit(from, receiver [20]byte, assets *big.Int) (*big.Int, error) {
	if err := e.guardMutate(); err != nil {
		return nil, err
	}
	if e.collateral == nil {
		return nil, ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if assets == nil || assets.Sign() <= 0 {
		return nil, ErrZeroDeposit
	}
	if receiver == ([20]byte{}) {
		return nil, ErrZeroAddress
	}

	st, err := e.loadState()
	if err != nil {
		return nil, err
	}

	// Shares are priced against the aggregate before the collateral moves.
	shares, err := e.convertToShares(st, assets)
	if err != nil {
		return nil, err
	}

	// The collateral must land before the accrual ledgers record the stake;
	// otherwise a failed transfer would leave points accruing on assets that
	// never arrived.
	if err := e.collateral.TransferFrom(from, e.moduleAddress, assets); err != nil {
		return nil, err
	}

	receiverAcc, err := e.loadAccount(receiver)
	if err != nil {
		return nil, err
	}
	if err := e.checkpointRewards(st, receiver, receiverAcc.VaultShares); err != nil {
		return nil, err
	}
	if err := e.checkpointPoints(receiver, assets, true); err != nil {
		return nil, err
	}

	receiverAcc.VaultShares = new(big.Int).Add(receiverAcc.VaultShares, shares)
	st.TotalShares = new(big.Int).Add(st.TotalShares, shares)

	if err := e.state.PutAccount(receiver, receiverAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutVaultState(st); err != nil {
		return nil, err
	}

	e.emit(events.VaultDeposited{
		Receiver: receiver,
		Assets:   copyBigInt(assets),
		Shares:   copyBigInt(shares),
		NewTotal: copyBigInt(st.TotalShares),
	})
	return shares, nil
}

// TransferShares moves vault shares between holders. Both accrual ledgers are
// checkpointed for both endpoints before balances change, using pre-change
// balances.
func (e *Engine) TransferShares(from, to [20]byte, shares *big.Int) error {
	if err := e.guardMutate(); err != nil {
		return err
	}
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	if shares == nil || shares.Sign() <= 0 {
		return ErrZeroAmount
	}
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return ErrZeroAddress
	}

	st, err := e.loadState()
	if err != nil {
		return err
	}
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.VaultShares.Cmp(shares) < 0 {
		return ErrInsufficientShares
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}

	if err := e.checkpointRewards(st, from, fromAcc.VaultShares); err != nil {
		return err
	}
	if err := e.checkpointRewards(st, to, toAcc.VaultShares); err != nil {
		return err
	}
	// The transferred stake keeps accruing points under the new holder; the
	// sender's tracker moves pro rata with the shares.
	if err := e.transferPoints(from, to, shares, fromAcc.VaultShares); err != nil {
		return err
	}

	fromAcc.VaultShares = new(big.Int).Sub(fromAcc.VaultShares, shares)
	toAcc.VaultShares = new(big.Int).Add(toAcc.VaultShares, shares)

	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	if err := e.state.PutVaultState(st); err != nil {
		return err
	}

	e.emit(events.VaultSharesTransferred{From: from, To: to, Shares: copyBigInt(shares)})
	return nil
}

// DelegateToStrategy moves directly-held collateral into the strategy venue.
// Privileged: only the configured operator may rebalance.
func (e *Engine) DelegateToStrategy(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.guardMutate(); err != nil {
		return nil, err
	}
	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	if e.collateral == nil || e.strategy == nil {
		return nil, ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	held, err := e.collateral.BalanceOf(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if held.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := e.collateral.IncreaseAllowance(e.moduleAddress, e.strategyAddress, amount); err != nil {
		return nil, err
	}
	venueShares, err := e.strategy.DepositIntoStrategy(e.strategyID, e.moduleAddress, amount)
	if err != nil {
		return nil, err
	}

	e.emit(events.VaultStrategyDelegated{Amount: copyBigInt(amount), Shares: copyBigInt(venueShares)})
	return venueShares, nil
}

// Redeem is part of the standard vault shape but depositor-initiated
// redemption is disabled at this layer; withdrawals only occur through the
// administrative unwind path into the two external systems.
func (e *Engine) Redeem([20]byte, *big.Int) (*big.Int, error) {
	return nil, ErrWithdrawalsDisabled
}

// Withdraw is part of the standard vault shape and always fails; see Redeem.
func (e *Engine) Withdraw([20]byte, *big.Int) (*big.Int, error) {
	return nil, ErrWithdrawalsDisabled
}
