package vault

import "math/big"

var (
	// ray is the 1e18 fixed-point multiplier used by both accrual engines and
	// the share price computation.
	ray = big.NewInt(1_000_000_000_000_000_000)
)

const (
	// secondsPerHour scales the point accrual formula: one point-unit per
	// staked asset-unit per hour.
	secondsPerHour = 3_600

	// DefaultRewardsDuration is the reward streaming period applied when the
	// engine is not configured explicitly.
	DefaultRewardsDuration uint64 = 30 * 24 * 60 * 60
)

const moduleName = "vault"
