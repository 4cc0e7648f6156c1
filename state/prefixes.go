package state

// Key prefixes for everything persisted through the manager. Keys are
// prefix||suffix with fixed-width suffixes (addresses, digests) so no
// separator ambiguity can arise.
var (
	keyVaultState           = []byte("vault/state")
	prefixAccount           = []byte("vault/account/")
	prefixPointRecord       = []byte("vault/points/")
	prefixRewardRecord      = []byte("vault/rewards/")
	prefixCustodianPending  = []byte("vault/custodian-outstanding/")
	prefixStrategyPending   = []byte("vault/strategy-outstanding/")
	prefixStrategyPosition  = []byte("strategy/position/")
	keyStrategyTotals       = []byte("strategy/totals")
	prefixStrategyQueued    = []byte("strategy/queued/")
	prefixCustodianRequest  = []byte("custodian/request/")
	prefixTokenAllowanceLST = []byte("token/lst/allowance/")
)

func appendKey(prefix []byte, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(suffix))
	key = append(key, prefix...)
	return append(key, suffix...)
}
