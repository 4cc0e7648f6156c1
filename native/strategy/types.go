package strategy

import (
	"math/big"

	"restakevault/native/vault"
)

// Position tracks a holder's venue share balance.
type Position struct {
	Shares *big.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	return &Position{Shares: copyBigInt(p.Shares)}
}

// Totals aggregates the venue-wide share and underlying accounting plus the
// monotonic withdrawal nonce.
type Totals struct {
	TotalShares     *big.Int
	TotalUnderlying *big.Int
	NextNonce       uint64
}

// EnsureDefaults replaces nil big.Int fields with zero values.
func (t *Totals) EnsureDefaults() {
	if t == nil {
		return
	}
	if t.TotalShares == nil {
		t.TotalShares = big.NewInt(0)
	}
	if t.TotalUnderlying == nil {
		t.TotalUnderlying = big.NewInt(0)
	}
}

// Clone returns a deep copy of the totals.
func (t *Totals) Clone() *Totals {
	if t == nil {
		return nil
	}
	return &Totals{
		TotalShares:     copyBigInt(t.TotalShares),
		TotalUnderlying: copyBigInt(t.TotalUnderlying),
		NextNonce:       t.NextNonce,
	}
}

// QueuedWithdrawal pairs a withdrawal descriptor with the underlying amount
// reserved for it at queue time. The reserved amount is what completion pays
// out, insulating in-flight withdrawals from later rate moves.
type QueuedWithdrawal struct {
	Descriptor *vault.WithdrawalDescriptor
	Underlying *big.Int
}

// Clone returns a deep copy of the queued withdrawal.
func (q *QueuedWithdrawal) Clone() *QueuedWithdrawal {
	if q == nil {
		return nil
	}
	return &QueuedWithdrawal{
		Descriptor: q.Descriptor.Clone(),
		Underlying: copyBigInt(q.Underlying),
	}
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
