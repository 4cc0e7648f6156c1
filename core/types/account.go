package types

import "math/big"

// Account captures the token balances tracked for a single address. The vault
// share balance lives here alongside the collateral and reward token balances so
// the invariant "total share supply equals the sum of account shares" can be
// audited from state alone.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceLST  *big.Int `json:"balanceLST"`
	BalanceRWD  *big.Int `json:"balanceRWD"`
	VaultShares *big.Int `json:"vaultShares"`
}

// EnsureDefaults replaces nil balance pointers with zero values so callers can
// operate on the account without nil checks.
func (a *Account) EnsureDefaults() {
	if a == nil {
		return
	}
	if a.BalanceLST == nil {
		a.BalanceLST = big.NewInt(0)
	}
	if a.BalanceRWD == nil {
		a.BalanceRWD = big.NewInt(0)
	}
	if a.VaultShares == nil {
		a.VaultShares = big.NewInt(0)
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce}
	if a.BalanceLST != nil {
		clone.BalanceLST = new(big.Int).Set(a.BalanceLST)
	}
	if a.BalanceRWD != nil {
		clone.BalanceRWD = new(big.Int).Set(a.BalanceRWD)
	}
	if a.VaultShares != nil {
		clone.VaultShares = new(big.Int).Set(a.VaultShares)
	}
	return clone
}
