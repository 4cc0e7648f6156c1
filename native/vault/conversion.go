package vault

import "math/big"

// convertToShares prices a deposit against the current aggregate. Bootstrap
// deposits mint 1:1; afterwards shares = assets * supply / totalAssets with
// truncating division. There is deliberately no rounding-up path: repeated tiny
// deposits may mint marginally fewer shares than fair value.
func (e *Engine) convertToShares(st *State, assets *big.Int) (*big.Int, error) {
	if st.TotalShares.Sign() == 0 {
		return new(big.Int).Set(assets), nil
	}
	total, err := e.totalAssets(st)
	if err != nil {
		return nil, err
	}
	shares := new(big.Int).Mul(assets, st.TotalShares)
	return shares.Quo(shares, total), nil
}

// totalAssets computes the aggregate under management: collateral held
// directly, collateral locked in the strategy venue, and collateral backing
// queued strategy withdrawals. Every term is re-read live; nothing is cached.
func (e *Engine) totalAssets(st *State) (*big.Int, error) {
	if e.collateral == nil || e.strategy == nil {
		return nil, ErrNilCollaborator
	}
	held, err := e.collateral.BalanceOf(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	locked, err := e.strategy.UserUnderlying(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Add(held, locked)
	if st.PendingStrategyWithdrawalShares.Sign() > 0 {
		pending, err := e.strategy.SharesToUnderlyingView(st.PendingStrategyWithdrawalShares)
		if err != nil {
			return nil, err
		}
		total.Add(total, pending)
	}
	return total, nil
}

// TotalAssets returns the aggregate collateral under management.
func (e *Engine) TotalAssets() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return e.totalAssets(st)
}

// TotalShares returns the current vault share supply.
func (e *Engine) TotalShares() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return copyBigInt(st.TotalShares), nil
}

// PricePerShare returns the collateral value of one share scaled by 1e18.
// Callers must guard the zero-supply case.
func (e *Engine) PricePerShare() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if st.TotalShares.Sign() == 0 {
		return nil, ErrZeroShareSupply
	}
	total, err := e.totalAssets(st)
	if err != nil {
		return nil, err
	}
	price := new(big.Int).Mul(total, ray)
	return price.Quo(price, st.TotalShares), nil
}

// BalanceOf returns the share balance held by an account.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return copyBigInt(account.VaultShares), nil
}

// ExternalLockedAmount returns the collateral value currently locked in the
// strategy venue, excluding queued withdrawals.
func (e *Engine) ExternalLockedAmount() (*big.Int, error) {
	if e == nil {
		return nil, ErrNilState
	}
	if e.strategy == nil {
		return nil, ErrNilCollaborator
	}
	return e.strategy.UserUnderlying(e.moduleAddress)
}
