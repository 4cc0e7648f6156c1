package vault

import "math/big"

// State holds the vault-level accounting written back to the state backend on
// every mutating operation. Collateral held directly and collateral locked in
// the strategy venue are deliberately absent: both are read live from the
// collaborators so the aggregate always reflects current external state.
type State struct {
	TotalShares                     *big.Int
	PendingStrategyWithdrawalShares *big.Int
	Rewards                         GlobalRewardState
}

// GlobalRewardState tracks the streaming reward distributor's global
// accumulator. RewardPerTokenStored only ever increases; PeriodFinish moves
// forward on funding.
type GlobalRewardState struct {
	RewardRate           *big.Int
	PeriodFinish         uint64
	RewardPerTokenStored *big.Int
	LastUpdateTime       uint64
}

// PointRecord is the lazily-created per-account checkpoint for the loyalty
// point accumulator.
type PointRecord struct {
	StakedAssets       *big.Int
	AccumulatedPoints  *big.Int
	LastCheckpointTime uint64
}

// RewardRecord is the lazily-created per-account checkpoint for the streaming
// reward distributor. LastUpdated is kept for observability; the payout formula
// does not depend on it.
type RewardRecord struct {
	RewardPerTokenPaid *big.Int
	Accrued            *big.Int
	LastUpdated        uint64
}

// WithdrawalDescriptor is the full structured record required to verify and
// complete a strategy-venue withdrawal. Its deterministic digest (computed by
// the venue) doubles as the outstanding-set membership key.
type WithdrawalDescriptor struct {
	Staker     [20]byte
	Withdrawer [20]byte
	Nonce      uint64
	StartTime  uint64
	Strategies [][32]byte
	Shares     []*big.Int
}

// TotalShares sums the per-strategy share counts carried by the descriptor.
func (d *WithdrawalDescriptor) TotalShares() *big.Int {
	total := big.NewInt(0)
	if d == nil {
		return total
	}
	for _, shares := range d.Shares {
		if shares != nil {
			total.Add(total, shares)
		}
	}
	return total
}

// Clone returns a deep copy of the descriptor.
func (d *WithdrawalDescriptor) Clone() *WithdrawalDescriptor {
	if d == nil {
		return nil
	}
	clone := &WithdrawalDescriptor{
		Staker:     d.Staker,
		Withdrawer: d.Withdrawer,
		Nonce:      d.Nonce,
		StartTime:  d.StartTime,
	}
	clone.Strategies = append([][32]byte(nil), d.Strategies...)
	clone.Shares = make([]*big.Int, len(d.Shares))
	for i, shares := range d.Shares {
		clone.Shares[i] = copyBigInt(shares)
	}
	return clone
}

// NewState returns a zeroed vault state ready for first use.
func NewState() *State {
	return &State{
		TotalShares:                     big.NewInt(0),
		PendingStrategyWithdrawalShares: big.NewInt(0),
		Rewards: GlobalRewardState{
			RewardRate:           big.NewInt(0),
			RewardPerTokenStored: big.NewInt(0),
		},
	}
}

// EnsureDefaults replaces nil big.Int fields with zero values.
func (s *State) EnsureDefaults() {
	if s == nil {
		return
	}
	if s.TotalShares == nil {
		s.TotalShares = big.NewInt(0)
	}
	if s.PendingStrategyWithdrawalShares == nil {
		s.PendingStrategyWithdrawalShares = big.NewInt(0)
	}
	if s.Rewards.RewardRate == nil {
		s.Rewards.RewardRate = big.NewInt(0)
	}
	if s.Rewards.RewardPerTokenStored == nil {
		s.Rewards.RewardPerTokenStored = big.NewInt(0)
	}
}

// Clone returns a deep copy of the vault state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := &State{
		TotalShares:                     copyBigInt(s.TotalShares),
		PendingStrategyWithdrawalShares: copyBigInt(s.PendingStrategyWithdrawalShares),
		Rewards: GlobalRewardState{
			RewardRate:           copyBigInt(s.Rewards.RewardRate),
			PeriodFinish:         s.Rewards.PeriodFinish,
			RewardPerTokenStored: copyBigInt(s.Rewards.RewardPerTokenStored),
			LastUpdateTime:       s.Rewards.LastUpdateTime,
		},
	}
	return clone
}

// Clone returns a deep copy of the point record.
func (r *PointRecord) Clone() *PointRecord {
	if r == nil {
		return nil
	}
	return &PointRecord{
		StakedAssets:       copyBigInt(r.StakedAssets),
		AccumulatedPoints:  copyBigInt(r.AccumulatedPoints),
		LastCheckpointTime: r.LastCheckpointTime,
	}
}

// Clone returns a deep copy of the reward record.
func (r *RewardRecord) Clone() *RewardRecord {
	if r == nil {
		return nil
	}
	return &RewardRecord{
		RewardPerTokenPaid: copyBigInt(r.RewardPerTokenPaid),
		Accrued:            copyBigInt(r.Accrued),
		LastUpdated:        r.LastUpdated,
	}
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
