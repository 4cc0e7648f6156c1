package vault

import (
	"math/big"

	"restakevault/core/events"
)

func (e *Engine) lastTimeRewardApplicable(st *State) uint64 {
	now := e.now()
	if st.Rewards.PeriodFinish < now {
		return st.Rewards.PeriodFinish
	}
	return now
}

// rewardPerToken returns the global accumulator projected to the applicable
// time. With zero supply the stored snapshot is returned unchanged so no
// rewards leak while nobody holds shares.
func (e *Engine) rewardPerToken(st *State) *big.Int {
	stored := copyBigInt(st.Rewards.RewardPerTokenStored)
	if st.TotalShares.Sign() == 0 {
		return stored
	}
	applicable := e.lastTimeRewardApplicable(st)
	if applicable <= st.Rewards.LastUpdateTime {
		return stored
	}
	elapsed := new(big.Int).SetUint64(applicable - st.Rewards.LastUpdateTime)
	delta := new(big.Int).Mul(st.Rewards.RewardRate, elapsed)
	delta.Mul(delta, ray)
	delta.Quo(delta, st.TotalShares)
	return stored.Add(stored, delta)
}

func earnedWith(balance, rewardPerToken *big.Int, record *RewardRecord) *big.Int {
	paid := big.NewInt(0)
	accrued := big.NewInt(0)
	if record != nil {
		paid = copyBigInt(record.RewardPerTokenPaid)
		accrued = copyBigInt(record.Accrued)
	}
	owed := new(big.Int).Sub(rewardPerToken, paid)
	owed.Mul(owed, balance)
	owed.Quo(owed, ray)
	return owed.Add(owed, accrued)
}

// checkpointRewards advances the global accumulator and, for a concrete
// account, settles its earned balance against the pre-change share balance.
// The vault state is mutated in place; the caller persists it.
func (e *Engine) checkpointRewards(st *State, addr [20]byte, preBalance *big.Int) error {
	rpt := e.rewardPerToken(st)
	st.Rewards.RewardPerTokenStored = rpt
	st.Rewards.LastUpdateTime = e.lastTimeRewardApplicable(st)
	if addr == ([20]byte{}) {
		return nil
	}
	record, ok, err := e.state.RewardRecord(addr)
	if err != nil {
		return err
	}
	if !ok || record == nil {
		record = &RewardRecord{RewardPerTokenPaid: big.NewInt(0), Accrued: big.NewInt(0)}
	} else {
		record = record.Clone()
	}
	record.Accrued = earnedWith(preBalance, rpt, record)
	record.RewardPerTokenPaid = copyBigInt(rpt)
	record.LastUpdated = e.now()
	return e.state.PutRewardRecord(addr, record)
}

// RewardPerToken returns the current global reward accumulator.
func (e *Engine) RewardPerToken() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return e.rewardPerToken(st), nil
}

// Earned projects the claimable reward balance for an account without
// checkpointing anything.
func (e *Engine) Earned(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	record, _, err := e.state.RewardRecord(addr)
	if err != nil {
		return nil, err
	}
	return earnedWith(account.VaultShares, e.rewardPerToken(st), record), nil
}

// NotifyRewardAmount starts (or tops up) a reward streaming period. Funding
// mid-period rolls the undistributed remainder into the new rate. Dust funding
// that truncates to a zero rate is rejected rather than silently absorbed.
// Privileged.
func (e *Engine) NotifyRewardAmount(caller [20]byte, amount *big.Int) error {
	if err := e.guardMutate(); err != nil {
		return err
	}
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.rewardToken == nil {
		return ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}

	st, err := e.loadState()
	if err != nil {
		return err
	}
	if err := e.checkpointRewards(st, [20]byte{}, nil); err != nil {
		return err
	}

	now := e.now()
	duration := new(big.Int).SetUint64(e.duration)
	rate := new(big.Int)
	if now >= st.Rewards.PeriodFinish {
		rate.Quo(amount, duration)
	} else {
		remaining := new(big.Int).SetUint64(st.Rewards.PeriodFinish - now)
		leftover := remaining.Mul(remaining, st.Rewards.RewardRate)
		rate.Add(amount, leftover)
		rate.Quo(rate, duration)
	}
	if rate.Sign() == 0 {
		return ErrZeroRewardRate
	}

	if err := e.rewardToken.Transfer(e.rewardSource, e.moduleAddress, amount); err != nil {
		return err
	}

	st.Rewards.RewardRate = rate
	st.Rewards.LastUpdateTime = now
	st.Rewards.PeriodFinish = now + e.duration
	if err := e.state.PutVaultState(st); err != nil {
		return err
	}

	e.emit(events.VaultRewardsFunded{
		Amount:       copyBigInt(amount),
		Rate:         copyBigInt(rate),
		PeriodFinish: st.Rewards.PeriodFinish,
	})
	return nil
}

// ClaimRewards checkpoints the account, pays out its accrued balance in reward
// tokens and zeroes the record. Claiming with nothing owed is a silent no-op
// returning zero.
func (e *Engine) ClaimRewards(addr [20]byte) (*big.Int, error) {
	if err := e.guardMutate(); err != nil {
		return nil, err
	}
	if e.rewardToken == nil {
		return nil, ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if addr == ([20]byte{}) {
		return nil, ErrZeroAddress
	}

	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	if err := e.checkpointRewards(st, addr, account.VaultShares); err != nil {
		return nil, err
	}
	if err := e.state.PutVaultState(st); err != nil {
		return nil, err
	}

	record, ok, err := e.state.RewardRecord(addr)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil || record.Accrued.Sign() == 0 {
		return big.NewInt(0), nil
	}
	payout := copyBigInt(record.Accrued)
	// Pay before zeroing the record so a failed transfer leaves the accrued
	// balance claimable.
	if err := e.rewardToken.Transfer(e.moduleAddress, addr, payout); err != nil {
		return nil, err
	}
	record = record.Clone()
	record.Accrued = big.NewInt(0)
	if err := e.state.PutRewardRecord(addr, record); err != nil {
		return nil, err
	}

	e.emit(events.VaultRewardsClaimed{Account: addr, Amount: copyBigInt(payout)})
	return payout, nil
}
