package state

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"restakevault/core/types"
)

var (
	errNegativeBalance = errors.New("state: account balance cannot be negative")
	errBalanceOverflow = errors.New("state: account balance exceeds 256 bits")
)

// storedAccount mirrors types.Account for RLP persistence.
type storedAccount struct {
	Nonce       uint64
	BalanceLST  *big.Int
	BalanceRWD  *big.Int
	VaultShares *big.Int
}

func accountKey(addr [20]byte) []byte {
	return appendKey(prefixAccount, addr[:])
}

func checkBalance(v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return errNegativeBalance
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return errBalanceOverflow
	}
	return nil
}

// GetAccount loads an account, returning a zeroed account when the address has
// never been touched.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	stored := new(storedAccount)
	ok, err := m.KVGet(accountKey(addr), stored)
	if err != nil {
		return nil, err
	}
	account := &types.Account{}
	if ok {
		account.Nonce = stored.Nonce
		account.BalanceLST = stored.BalanceLST
		account.BalanceRWD = stored.BalanceRWD
		account.VaultShares = stored.VaultShares
	}
	account.EnsureDefaults()
	return account, nil
}

// PutAccount persists an account after validating every balance is a
// non-negative 256-bit quantity.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	account.EnsureDefaults()
	for _, balance := range []*big.Int{account.BalanceLST, account.BalanceRWD, account.VaultShares} {
		if err := checkBalance(balance); err != nil {
			return err
		}
	}
	return m.KVPut(accountKey(addr), &storedAccount{
		Nonce:       account.Nonce,
		BalanceLST:  account.BalanceLST,
		BalanceRWD:  account.BalanceRWD,
		VaultShares: account.VaultShares,
	})
}
