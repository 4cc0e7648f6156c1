package state

import (
	"math/big"

	"restakevault/native/strategy"
	"restakevault/native/vault"
)

type storedStrategyPosition struct {
	Shares *big.Int
}

type storedStrategyTotals struct {
	TotalShares     *big.Int
	TotalUnderlying *big.Int
	NextNonce       uint64
}

type storedQueuedWithdrawal struct {
	Staker     [20]byte
	Withdrawer [20]byte
	Nonce      uint64
	StartTime  uint64
	Strategies [][32]byte
	Shares     []*big.Int
	Underlying *big.Int
}

// StrategyPosition loads a holder's venue share position.
func (m *Manager) StrategyPosition(holder [20]byte) (*strategy.Position, bool, error) {
	stored := new(storedStrategyPosition)
	ok, err := m.KVGet(appendKey(prefixStrategyPosition, holder[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &strategy.Position{Shares: stored.Shares}, true, nil
}

// PutStrategyPosition persists a holder's venue share position.
func (m *Manager) PutStrategyPosition(holder [20]byte, position *strategy.Position) error {
	if position == nil {
		return nil
	}
	return m.KVPut(appendKey(prefixStrategyPosition, holder[:]), &storedStrategyPosition{
		Shares: position.Shares,
	})
}

// StrategyTotals loads the venue-wide totals, or nil when never initialised.
func (m *Manager) StrategyTotals() (*strategy.Totals, error) {
	stored := new(storedStrategyTotals)
	ok, err := m.KVGet(keyStrategyTotals, stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	totals := &strategy.Totals{
		TotalShares:     stored.TotalShares,
		TotalUnderlying: stored.TotalUnderlying,
		NextNonce:       stored.NextNonce,
	}
	totals.EnsureDefaults()
	return totals, nil
}

// PutStrategyTotals persists the venue-wide totals.
func (m *Manager) PutStrategyTotals(totals *strategy.Totals) error {
	if totals == nil {
		return nil
	}
	totals.EnsureDefaults()
	return m.KVPut(keyStrategyTotals, &storedStrategyTotals{
		TotalShares:     totals.TotalShares,
		TotalUnderlying: totals.TotalUnderlying,
		NextNonce:       totals.NextNonce,
	})
}

// QueuedWithdrawal loads a queued strategy withdrawal by root.
func (m *Manager) QueuedWithdrawal(root [32]byte) (*strategy.QueuedWithdrawal, bool, error) {
	stored := new(storedQueuedWithdrawal)
	ok, err := m.KVGet(appendKey(prefixStrategyQueued, root[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &strategy.QueuedWithdrawal{
		Descriptor: &vault.WithdrawalDescriptor{
			Staker:     stored.Staker,
			Withdrawer: stored.Withdrawer,
			Nonce:      stored.Nonce,
			StartTime:  stored.StartTime,
			Strategies: stored.Strategies,
			Shares:     stored.Shares,
		},
		Underlying: stored.Underlying,
	}, true, nil
}

// PutQueuedWithdrawal persists a queued strategy withdrawal under its root.
func (m *Manager) PutQueuedWithdrawal(root [32]byte, withdrawal *strategy.QueuedWithdrawal) error {
	if withdrawal == nil || withdrawal.Descriptor == nil {
		return nil
	}
	descriptor := withdrawal.Descriptor
	return m.KVPut(appendKey(prefixStrategyQueued, root[:]), &storedQueuedWithdrawal{
		Staker:     descriptor.Staker,
		Withdrawer: descriptor.Withdrawer,
		Nonce:      descriptor.Nonce,
		StartTime:  descriptor.StartTime,
		Strategies: descriptor.Strategies,
		Shares:     descriptor.Shares,
		Underlying: withdrawal.Underlying,
	})
}

// DeleteQueuedWithdrawal removes a queued strategy withdrawal.
func (m *Manager) DeleteQueuedWithdrawal(root [32]byte) error {
	return m.KVDelete(appendKey(prefixStrategyQueued, root[:]))
}
