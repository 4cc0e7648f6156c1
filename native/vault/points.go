package vault

import "math/big"

// checkpointPoints settles the linear point accrual for an account and applies
// the staked-asset delta. A first touch creates the record at the current time
// with zero accumulated points; it is never back-dated. Decreases exceeding the
// tracked balance abort the operation.
func (e *Engine) checkpointPoints(addr [20]byte, deltaAssets *big.Int, increase bool) error {
	now := e.now()
	record, ok, err := e.state.PointRecord(addr)
	if err != nil {
		return err
	}
	if !ok || record == nil {
		if !increase {
			return ErrPointsUnderflow
		}
		record = &PointRecord{
			StakedAssets:       copyBigInt(deltaAssets),
			AccumulatedPoints:  big.NewInt(0),
			LastCheckpointTime: now,
		}
		return e.state.PutPointRecord(addr, record)
	}
	record = record.Clone()
	record.AccumulatedPoints = new(big.Int).Add(record.AccumulatedPoints, accruedPoints(record, now))
	if increase {
		record.StakedAssets = new(big.Int).Add(record.StakedAssets, deltaAssets)
	} else {
		if record.StakedAssets.Cmp(deltaAssets) < 0 {
			return ErrPointsUnderflow
		}
		record.StakedAssets = new(big.Int).Sub(record.StakedAssets, deltaAssets)
	}
	record.LastCheckpointTime = now
	return e.state.PutPointRecord(addr, record)
}

// accruedPoints returns the points earned since the record's last checkpoint:
// stakedAssets * elapsedSeconds * 1e18 / 3600, truncating.
func accruedPoints(record *PointRecord, now uint64) *big.Int {
	if record == nil || record.StakedAssets == nil || record.StakedAssets.Sign() == 0 {
		return big.NewInt(0)
	}
	if now <= record.LastCheckpointTime {
		return big.NewInt(0)
	}
	elapsed := new(big.Int).SetUint64(now - record.LastCheckpointTime)
	points := new(big.Int).Mul(record.StakedAssets, elapsed)
	points.Mul(points, ray)
	return points.Quo(points, big.NewInt(secondsPerHour))
}

// transferPoints moves a pro-rata slice of the sender's staked-asset tracker to
// the receiver when shares change hands. The slice is bounded by the tracked
// amount, so the guarded decrement cannot underflow here; both records are
// checkpointed at the current time.
func (e *Engine) transferPoints(from, to [20]byte, shares, fromPreShares *big.Int) error {
	record, ok, err := e.state.PointRecord(from)
	if err != nil {
		return err
	}
	if !ok || record == nil || record.StakedAssets.Sign() == 0 || fromPreShares.Sign() == 0 {
		return nil
	}
	moved := new(big.Int).Mul(record.StakedAssets, shares)
	moved.Quo(moved, fromPreShares)
	if err := e.checkpointPoints(from, moved, false); err != nil {
		return err
	}
	if moved.Sign() == 0 {
		return nil
	}
	return e.checkpointPoints(to, moved, true)
}

// PendingPoints projects an account's point total as of now without mutating
// any state. Accounts never touched report zero.
func (e *Engine) PendingPoints(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, ok, err := e.state.PointRecord(addr)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return big.NewInt(0), nil
	}
	total := copyBigInt(record.AccumulatedPoints)
	return total.Add(total, accruedPoints(record, e.now())), nil
}
