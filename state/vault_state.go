package state

import (
	"math/big"

	"restakevault/native/vault"
)

// storedVaultState mirrors vault.State for RLP persistence.
type storedVaultState struct {
	TotalShares                     *big.Int
	PendingStrategyWithdrawalShares *big.Int
	RewardRate                      *big.Int
	PeriodFinish                    uint64
	RewardPerTokenStored            *big.Int
	LastUpdateTime                  uint64
}

type storedPointRecord struct {
	StakedAssets       *big.Int
	AccumulatedPoints  *big.Int
	LastCheckpointTime uint64
}

type storedRewardRecord struct {
	RewardPerTokenPaid *big.Int
	Accrued            *big.Int
	LastUpdated        uint64
}

// VaultState loads the vault singleton, or nil when never initialised.
func (m *Manager) VaultState() (*vault.State, error) {
	stored := new(storedVaultState)
	ok, err := m.KVGet(keyVaultState, stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	st := &vault.State{
		TotalShares:                     stored.TotalShares,
		PendingStrategyWithdrawalShares: stored.PendingStrategyWithdrawalShares,
		Rewards: vault.GlobalRewardState{
			RewardRate:           stored.RewardRate,
			PeriodFinish:         stored.PeriodFinish,
			RewardPerTokenStored: stored.RewardPerTokenStored,
			LastUpdateTime:       stored.LastUpdateTime,
		},
	}
	st.EnsureDefaults()
	return st, nil
}

// PutVaultState persists the vault singleton.
func (m *Manager) PutVaultState(st *vault.State) error {
	if st == nil {
		return nil
	}
	st.EnsureDefaults()
	return m.KVPut(keyVaultState, &storedVaultState{
		TotalShares:                     st.TotalShares,
		PendingStrategyWithdrawalShares: st.PendingStrategyWithdrawalShares,
		RewardRate:                      st.Rewards.RewardRate,
		PeriodFinish:                    st.Rewards.PeriodFinish,
		RewardPerTokenStored:            st.Rewards.RewardPerTokenStored,
		LastUpdateTime:                  st.Rewards.LastUpdateTime,
	})
}

// PointRecord loads an account's point checkpoint.
func (m *Manager) PointRecord(addr [20]byte) (*vault.PointRecord, bool, error) {
	stored := new(storedPointRecord)
	ok, err := m.KVGet(appendKey(prefixPointRecord, addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &vault.PointRecord{
		StakedAssets:       stored.StakedAssets,
		AccumulatedPoints:  stored.AccumulatedPoints,
		LastCheckpointTime: stored.LastCheckpointTime,
	}, true, nil
}

// PutPointRecord persists an account's point checkpoint.
func (m *Manager) PutPointRecord(addr [20]byte, record *vault.PointRecord) error {
	if record == nil {
		return nil
	}
	return m.KVPut(appendKey(prefixPointRecord, addr[:]), &storedPointRecord{
		StakedAssets:       record.StakedAssets,
		AccumulatedPoints:  record.AccumulatedPoints,
		LastCheckpointTime: record.LastCheckpointTime,
	})
}

// RewardRecord loads an account's reward checkpoint.
func (m *Manager) RewardRecord(addr [20]byte) (*vault.RewardRecord, bool, error) {
	stored := new(storedRewardRecord)
	ok, err := m.KVGet(appendKey(prefixRewardRecord, addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &vault.RewardRecord{
		RewardPerTokenPaid: stored.RewardPerTokenPaid,
		Accrued:            stored.Accrued,
		LastUpdated:        stored.LastUpdated,
	}, true, nil
}

// PutRewardRecord persists an account's reward checkpoint.
func (m *Manager) PutRewardRecord(addr [20]byte, record *vault.RewardRecord) error {
	if record == nil {
		return nil
	}
	return m.KVPut(appendKey(prefixRewardRecord, addr[:]), &storedRewardRecord{
		RewardPerTokenPaid: record.RewardPerTokenPaid,
		Accrued:            record.Accrued,
		LastUpdated:        record.LastUpdated,
	})
}

// CustodianWithdrawalOutstanding reports membership of a custodian request id
// in the outstanding set.
func (m *Manager) CustodianWithdrawalOutstanding(id *big.Int) (bool, error) {
	return m.kvHas(appendKey(prefixCustodianPending, bigIntKey(id)))
}

// SetCustodianWithdrawalOutstanding adds or removes a custodian request id
// from the outstanding set.
func (m *Manager) SetCustodianWithdrawalOutstanding(id *big.Int, outstanding bool) error {
	key := appendKey(prefixCustodianPending, bigIntKey(id))
	if !outstanding {
		return m.KVDelete(key)
	}
	return m.KVPut(key, uint8(1))
}

// StrategyWithdrawalOutstanding reports membership of a strategy withdrawal
// root in the outstanding set.
func (m *Manager) StrategyWithdrawalOutstanding(root [32]byte) (bool, error) {
	return m.kvHas(appendKey(prefixStrategyPending, root[:]))
}

// SetStrategyWithdrawalOutstanding adds or removes a strategy withdrawal root
// from the outstanding set.
func (m *Manager) SetStrategyWithdrawalOutstanding(root [32]byte, outstanding bool) error {
	key := appendKey(prefixStrategyPending, root[:])
	if !outstanding {
		return m.KVDelete(key)
	}
	return m.KVPut(key, uint8(1))
}
