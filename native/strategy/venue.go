// Package strategy implements a state-backed strategy venue: the secondary
// yield system the vault delegates collateral into. It keeps its own share
// accounting and withdrawal queue and satisfies the vault's StrategyVenue
// interface; withdrawal roots are keccak256 digests of the RLP-encoded
// descriptor, so they are deterministic for equal descriptors.
package strategy

import (
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"restakevault/native/vault"
)

var (
	errNilState           = errors.New("strategy venue: state not configured")
	errNilLedger          = errors.New("strategy venue: collateral ledger not configured")
	errInvalidAmount      = errors.New("strategy venue: amount must be positive")
	errInsufficientShares = errors.New("strategy venue: insufficient shares")
	errUnknownWithdrawal  = errors.New("strategy venue: unknown queued withdrawal")
	errNilDescriptor      = errors.New("strategy venue: nil descriptor")
)

// venueState describes the persistence surface the venue requires.
type venueState interface {
	StrategyPosition(holder [20]byte) (*Position, bool, error)
	PutStrategyPosition(holder [20]byte, position *Position) error
	StrategyTotals() (*Totals, error)
	PutStrategyTotals(*Totals) error
	QueuedWithdrawal(root [32]byte) (*QueuedWithdrawal, bool, error)
	PutQueuedWithdrawal(root [32]byte, withdrawal *QueuedWithdrawal) error
	DeleteQueuedWithdrawal(root [32]byte) error
}

// CollateralLedger is the slice of the collateral token the venue consumes:
// balance moves plus allowance spend-down for pull-based deposits.
type CollateralLedger interface {
	BalanceOf(holder [20]byte) (*big.Int, error)
	TransferFrom(from, to [20]byte, amount *big.Int) error
	SpendAllowance(owner, spender [20]byte, amount *big.Int) error
}

// Venue is the in-process strategy venue implementation.
type Venue struct {
	state      venueState
	collateral CollateralLedger
	address    [20]byte
	nowFn      func() int64
}

// NewVenue constructs a venue holding custody of delegated collateral under the
// provided address.
func NewVenue(address [20]byte) *Venue {
	return &Venue{
		address: address,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the venue to the external persistence layer.
func (v *Venue) SetState(state venueState) { v.state = state }

// SetCollateral wires the collateral ledger used for deposits and payouts.
func (v *Venue) SetCollateral(ledger CollateralLedger) { v.collateral = ledger }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (v *Venue) SetNowFunc(now func() int64) {
	if v == nil {
		return
	}
	if now == nil {
		v.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	v.nowFn = now
}

// Address returns the venue's custody account.
func (v *Venue) Address() [20]byte {
	if v == nil {
		return [20]byte{}
	}
	return v.address
}

func (v *Venue) ready() error {
	if v == nil || v.state == nil {
		return errNilState
	}
	if v.collateral == nil {
		return errNilLedger
	}
	return nil
}

func (v *Venue) totals() (*Totals, error) {
	totals, err := v.state.StrategyTotals()
	if err != nil {
		return nil, err
	}
	if totals == nil {
		totals = &Totals{}
	}
	totals.EnsureDefaults()
	return totals, nil
}

func (v *Venue) position(holder [20]byte) (*Position, error) {
	position, ok, err := v.state.StrategyPosition(holder)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		position = &Position{Shares: big.NewInt(0)}
	}
	if position.Shares == nil {
		position.Shares = big.NewInt(0)
	}
	return position, nil
}

// sharesForDeposit prices a deposit against the venue exchange rate; bootstrap
// deposits mint 1:1.
func sharesForDeposit(totals *Totals, amount *big.Int) *big.Int {
	if totals.TotalShares.Sign() == 0 || totals.TotalUnderlying.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	shares := new(big.Int).Mul(amount, totals.TotalShares)
	return shares.Quo(shares, totals.TotalUnderlying)
}

func sharesToUnderlying(totals *Totals, shares *big.Int) *big.Int {
	if totals.TotalShares.Sign() == 0 {
		return new(big.Int).Set(shares)
	}
	underlying := new(big.Int).Mul(shares, totals.TotalUnderlying)
	return underlying.Quo(underlying, totals.TotalShares)
}

// DepositIntoStrategy pulls collateral from the depositor and mints venue
// shares at the current exchange rate. The minted share count is returned.
func (v *Venue) DepositIntoStrategy(_ [32]byte, depositor [20]byte, amount *big.Int) (*big.Int, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	totals, err := v.totals()
	if err != nil {
		return nil, err
	}
	shares := sharesForDeposit(totals, amount)

	if err := v.collateral.SpendAllowance(depositor, v.address, amount); err != nil {
		return nil, err
	}
	if err := v.collateral.TransferFrom(depositor, v.address, amount); err != nil {
		return nil, err
	}

	position, err := v.position(depositor)
	if err != nil {
		return nil, err
	}
	position = position.Clone()
	position.Shares = new(big.Int).Add(position.Shares, shares)
	totals.TotalShares = new(big.Int).Add(totals.TotalShares, shares)
	totals.TotalUnderlying = new(big.Int).Add(totals.TotalUnderlying, amount)

	if err := v.state.PutStrategyPosition(depositor, position); err != nil {
		return nil, err
	}
	if err := v.state.PutStrategyTotals(totals); err != nil {
		return nil, err
	}
	return shares, nil
}

// UserUnderlying reports the underlying value of the holder's active venue
// shares. Queued withdrawals are excluded; their reserved value is carried by
// the queue records.
func (v *Venue) UserUnderlying(holder [20]byte) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	totals, err := v.totals()
	if err != nil {
		return nil, err
	}
	position, err := v.position(holder)
	if err != nil {
		return nil, err
	}
	return sharesToUnderlying(totals, position.Shares), nil
}

// SharesToUnderlyingView converts a share count at the current exchange rate
// without touching any position.
func (v *Venue) SharesToUnderlyingView(shares *big.Int) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, errNilState
	}
	if shares == nil || shares.Sign() == 0 {
		return big.NewInt(0), nil
	}
	totals, err := v.totals()
	if err != nil {
		return nil, err
	}
	return sharesToUnderlying(totals, shares), nil
}

// QueueWithdrawal removes shares from the staker's active position, reserves
// their underlying value and records the withdrawal under its deterministic
// root. The descriptor and root are returned for later completion.
func (v *Venue) QueueWithdrawal(staker [20]byte, strategyID [32]byte, shares *big.Int) (*vault.WithdrawalDescriptor, [32]byte, error) {
	if err := v.ready(); err != nil {
		return nil, [32]byte{}, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, [32]byte{}, errInvalidAmount
	}
	totals, err := v.totals()
	if err != nil {
		return nil, [32]byte{}, err
	}
	position, err := v.position(staker)
	if err != nil {
		return nil, [32]byte{}, err
	}
	if position.Shares.Cmp(shares) < 0 {
		return nil, [32]byte{}, errInsufficientShares
	}

	underlying := sharesToUnderlying(totals, shares)
	descriptor := &vault.WithdrawalDescriptor{
		Staker:     staker,
		Withdrawer: staker,
		Nonce:      totals.NextNonce,
		StartTime:  uint64(v.nowFn()),
		Strategies: [][32]byte{strategyID},
		Shares:     []*big.Int{new(big.Int).Set(shares)},
	}
	root, err := v.CalculateWithdrawalRoot(descriptor)
	if err != nil {
		return nil, [32]byte{}, err
	}

	position = position.Clone()
	position.Shares = new(big.Int).Sub(position.Shares, shares)
	totals.TotalShares = new(big.Int).Sub(totals.TotalShares, shares)
	totals.TotalUnderlying = new(big.Int).Sub(totals.TotalUnderlying, underlying)
	totals.NextNonce++

	if err := v.state.PutStrategyPosition(staker, position); err != nil {
		return nil, [32]byte{}, err
	}
	if err := v.state.PutStrategyTotals(totals); err != nil {
		return nil, [32]byte{}, err
	}
	if err := v.state.PutQueuedWithdrawal(root, &QueuedWithdrawal{
		Descriptor: descriptor.Clone(),
		Underlying: underlying,
	}); err != nil {
		return nil, [32]byte{}, err
	}
	return descriptor, root, nil
}

// CalculateWithdrawalRoot derives the deterministic digest for a descriptor:
// keccak256 of its RLP encoding.
func (v *Venue) CalculateWithdrawalRoot(descriptor *vault.WithdrawalDescriptor) ([32]byte, error) {
	if descriptor == nil {
		return [32]byte{}, errNilDescriptor
	}
	encoded, err := rlp.EncodeToBytes(descriptor)
	if err != nil {
		return [32]byte{}, err
	}
	var root [32]byte
	copy(root[:], ethcrypto.Keccak256(encoded))
	return root, nil
}

// CompleteQueuedWithdrawal pays the reserved underlying back to the withdrawer
// and drops the queue record. Completion against an unknown root fails.
func (v *Venue) CompleteQueuedWithdrawal(descriptor *vault.WithdrawalDescriptor, _ [][20]byte, _ uint64, receiveAsTokens bool) error {
	if err := v.ready(); err != nil {
		return err
	}
	root, err := v.CalculateWithdrawalRoot(descriptor)
	if err != nil {
		return err
	}
	queued, ok, err := v.state.QueuedWithdrawal(root)
	if err != nil {
		return err
	}
	if !ok || queued == nil {
		return errUnknownWithdrawal
	}
	if err := v.state.DeleteQueuedWithdrawal(root); err != nil {
		return err
	}
	if !receiveAsTokens {
		return nil
	}
	return v.collateral.TransferFrom(v.address, descriptor.Withdrawer, queued.Underlying)
}

// CreditYield simulates venue yield: the underlying backing grows while the
// share count stays fixed, lifting the exchange rate. The collateral is pulled
// from the provided source account.
func (v *Venue) CreditYield(source [20]byte, amount *big.Int) error {
	if err := v.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if err := v.collateral.TransferFrom(source, v.address, amount); err != nil {
		return err
	}
	totals, err := v.totals()
	if err != nil {
		return err
	}
	totals.TotalUnderlying = new(big.Int).Add(totals.TotalUnderlying, amount)
	return v.state.PutStrategyTotals(totals)
}
