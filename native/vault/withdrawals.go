package vault

import (
	"math/big"

	"restakevault/core/events"
)

// InitiateCustodianWithdrawal records request ids issued by the custodian's
// withdrawal queue as outstanding. Membership in the outstanding set is the
// sole authority for claim validity. Privileged.
func (e *Engine) InitiateCustodianWithdrawal(caller [20]byte, ids []*big.Int) error {
	if err := e.guardMutate(); err != nil {
		return err
	}
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	for _, id := range ids {
		if id == nil || id.Sign() < 0 {
			return ErrInvalidWithdrawal
		}
	}
	for _, id := range ids {
		if err := e.state.SetCustodianWithdrawalOutstanding(id, true); err != nil {
			return err
		}
	}
	// Events fire only after every id is recorded, so a mid-batch persistence
	// failure never announces ids that were not committed.
	for _, id := range ids {
		e.emit(events.CustodianWithdrawalInitiated{RequestID: copyBigInt(id)})
	}
	return nil
}

// ClaimCustodianWithdrawal claims a batch of custodian withdrawal requests.
// Every id is validated against the outstanding set before any claim executes;
// a single unknown id aborts the whole batch. While the custodian pays out, the
// in-progress marker is raised so fund-receipt logic can attribute the inbound
// collateral to the claim rather than an unsolicited transfer.
func (e *Engine) ClaimCustodianWithdrawal(caller [20]byte, ids []*big.Int) error {
	if err := e.guardMutate(); err != nil {
		return err
	}
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.custodian == nil {
		return ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == nil {
			return ErrInvalidWithdrawal
		}
		key := id.String()
		if _, dup := seen[key]; dup {
			return ErrInvalidWithdrawal
		}
		seen[key] = struct{}{}
		outstanding, err := e.state.CustodianWithdrawalOutstanding(id)
		if err != nil {
			return err
		}
		if !outstanding {
			return ErrInvalidWithdrawal
		}
	}

	e.claimingCustodian = true
	defer func() { e.claimingCustodian = false }()
	for _, id := range ids {
		// The id leaves the outstanding set only once the custodian has paid;
		// a failed claim must stay claimable on retry.
		if err := e.custodian.ClaimWithdrawal(id); err != nil {
			return err
		}
		if err := e.state.SetCustodianWithdrawalOutstanding(id, false); err != nil {
			return err
		}
		e.emit(events.CustodianWithdrawalClaimed{RequestID: copyBigInt(id)})
	}
	return nil
}

// InitiateStrategyWithdrawal queues a withdrawal of venue shares, records the
// returned withdrawal root as outstanding and shifts the share count from the
// venue's "locked" figure into the vault's pending tracker so the aggregate
// stays consistent while the withdrawal is in flight. Privileged.
func (e *Engine) InitiateStrategyWithdrawal(caller [20]byte, shares *big.Int) (*WithdrawalDescriptor, [32]byte, error) {
	if err := e.guardMutate(); err != nil {
		return nil, [32]byte{}, err
	}
	if err := e.requireOperator(caller); err != nil {
		return nil, [32]byte{}, err
	}
	if e.strategy == nil {
		return nil, [32]byte{}, ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return nil, [32]byte{}, err
	}
	defer release()
	if shares == nil || shares.Sign() <= 0 {
		return nil, [32]byte{}, ErrZeroAmount
	}

	st, err := e.loadState()
	if err != nil {
		return nil, [32]byte{}, err
	}

	descriptor, root, err := e.strategy.QueueWithdrawal(e.moduleAddress, e.strategyID, shares)
	if err != nil {
		return nil, [32]byte{}, err
	}
	if err := e.state.SetStrategyWithdrawalOutstanding(root, true); err != nil {
		return nil, [32]byte{}, err
	}
	st.PendingStrategyWithdrawalShares = new(big.Int).Add(st.PendingStrategyWithdrawalShares, shares)
	if err := e.state.PutVaultState(st); err != nil {
		return nil, [32]byte{}, err
	}

	e.emit(events.StrategyWithdrawalInitiated{Root: root, Shares: copyBigInt(shares)})
	return descriptor, root, nil
}

// ClaimStrategyWithdrawal completes a queued strategy withdrawal. The
// descriptor's deterministic root must be outstanding; once the venue pays out
// the root is removed and the pending tracker shrinks by the descriptor's
// share count. Privileged.
func (e *Engine) ClaimStrategyWithdrawal(caller [20]byte, descriptor *WithdrawalDescriptor, tokens [][20]byte, middlewareIndex uint64) error {
	if err := e.guardMutate(); err != nil {
		return err
	}
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if e.strategy == nil {
		return ErrNilCollaborator
	}
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	if descriptor == nil {
		return ErrInvalidWithdrawal
	}

	root, err := e.strategy.CalculateWithdrawalRoot(descriptor)
	if err != nil {
		return err
	}
	outstanding, err := e.state.StrategyWithdrawalOutstanding(root)
	if err != nil {
		return err
	}
	if !outstanding {
		return ErrInvalidWithdrawal
	}

	st, err := e.loadState()
	if err != nil {
		return err
	}
	claimed := descriptor.TotalShares()
	// An underflow here means the ledger and the venue disagree about queued
	// shares; abort rather than clamp.
	if st.PendingStrategyWithdrawalShares.Cmp(claimed) < 0 {
		return ErrPendingUnderflow
	}
	st.PendingStrategyWithdrawalShares = new(big.Int).Sub(st.PendingStrategyWithdrawalShares, claimed)

	// The venue pays out first; only then does the root leave the outstanding
	// set and the pending tracker shrink. A failed completion leaves the
	// withdrawal claimable and the aggregate untouched.
	if err := e.strategy.CompleteQueuedWithdrawal(descriptor, tokens, middlewareIndex, true); err != nil {
		return err
	}
	if err := e.state.SetStrategyWithdrawalOutstanding(root, false); err != nil {
		return err
	}
	if err := e.state.PutVaultState(st); err != nil {
		return err
	}

	e.emit(events.StrategyWithdrawalClaimed{Root: root, Shares: claimed})
	return nil
}
