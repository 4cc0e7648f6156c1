package state

import (
	"errors"
	"math/big"
)

var (
	errLedgerInvalidAmount = errors.New("state: transfer amount must be positive")
	errLedgerInsufficient  = errors.New("state: insufficient token balance")
	errLedgerAllowance     = errors.New("state: insufficient allowance")
)

// CollateralLedger exposes the staked-ETH derivative token as account balances
// in state. It satisfies the vault engine's CollateralToken interface and the
// strategy venue's ledger interface.
type CollateralLedger struct {
	mgr *Manager
}

// NewCollateralLedger constructs a collateral ledger over the manager.
func NewCollateralLedger(mgr *Manager) *CollateralLedger {
	return &CollateralLedger{mgr: mgr}
}

// BalanceOf returns the holder's collateral balance.
func (l *CollateralLedger) BalanceOf(holder [20]byte) (*big.Int, error) {
	account, err := l.mgr.GetAccount(holder)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.BalanceLST), nil
}

// TransferFrom moves collateral between accounts, failing on insufficient
// funds.
func (l *CollateralLedger) TransferFrom(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errLedgerInvalidAmount
	}
	fromAcc, err := l.mgr.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceLST.Cmp(amount) < 0 {
		return errLedgerInsufficient
	}
	toAcc, err := l.mgr.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.BalanceLST = new(big.Int).Sub(fromAcc.BalanceLST, amount)
	toAcc.BalanceLST = new(big.Int).Add(toAcc.BalanceLST, amount)
	if err := l.mgr.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.mgr.PutAccount(to, toAcc)
}

func allowanceKey(owner, spender [20]byte) []byte {
	suffix := make([]byte, 0, 40)
	suffix = append(suffix, owner[:]...)
	suffix = append(suffix, spender[:]...)
	return appendKey(prefixTokenAllowanceLST, suffix)
}

func (l *CollateralLedger) allowance(owner, spender [20]byte) (*big.Int, error) {
	stored := new(big.Int)
	ok, err := l.mgr.KVGet(allowanceKey(owner, spender), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return stored, nil
}

// IncreaseAllowance raises the spender's pull allowance on the owner's
// collateral.
func (l *CollateralLedger) IncreaseAllowance(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errLedgerInvalidAmount
	}
	current, err := l.allowance(owner, spender)
	if err != nil {
		return err
	}
	return l.mgr.KVPut(allowanceKey(owner, spender), new(big.Int).Add(current, amount))
}

// SpendAllowance consumes part of the spender's allowance, failing when the
// remaining allowance does not cover the amount.
func (l *CollateralLedger) SpendAllowance(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errLedgerInvalidAmount
	}
	current, err := l.allowance(owner, spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return errLedgerAllowance
	}
	return l.mgr.KVPut(allowanceKey(owner, spender), new(big.Int).Sub(current, amount))
}

// Mint credits freshly issued collateral to an account. Used by genesis
// funding and tests; the real token contract is external.
func (l *CollateralLedger) Mint(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errLedgerInvalidAmount
	}
	account, err := l.mgr.GetAccount(to)
	if err != nil {
		return err
	}
	account.BalanceLST = new(big.Int).Add(account.BalanceLST, amount)
	return l.mgr.PutAccount(to, account)
}

// RewardLedger exposes the reward token as account balances in state. It
// satisfies the vault engine's RewardToken interface.
type RewardLedger struct {
	mgr *Manager
}

// NewRewardLedger constructs a reward ledger over the manager.
func NewRewardLedger(mgr *Manager) *RewardLedger {
	return &RewardLedger{mgr: mgr}
}

// BalanceOf returns the holder's reward token balance.
func (l *RewardLedger) BalanceOf(holder [20]byte) (*big.Int, error) {
	account, err := l.mgr.GetAccount(holder)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.BalanceRWD), nil
}

// Transfer moves reward tokens between accounts, failing on insufficient
// funds.
func (l *RewardLedger) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errLedgerInvalidAmount
	}
	fromAcc, err := l.mgr.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceRWD.Cmp(amount) < 0 {
		return errLedgerInsufficient
	}
	toAcc, err := l.mgr.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.BalanceRWD = new(big.Int).Sub(fromAcc.BalanceRWD, amount)
	toAcc.BalanceRWD = new(big.Int).Add(toAcc.BalanceRWD, amount)
	if err := l.mgr.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.mgr.PutAccount(to, toAcc)
}

// Mint credits freshly issued reward tokens to an account.
func (l *RewardLedger) Mint(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errLedgerInvalidAmount
	}
	account, err := l.mgr.GetAccount(to)
	if err != nil {
		return err
	}
	account.BalanceRWD = new(big.Int).Add(account.BalanceRWD, amount)
	return l.mgr.PutAccount(to, account)
}
