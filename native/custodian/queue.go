// Package custodian implements the primary custodian's withdrawal queue. The
// vault records request ids issued here and later claims them; a claim pays the
// request's collateral to the registered beneficiary and retires the id.
package custodian

import (
	"errors"
	"math/big"
)

var (
	errNilState      = errors.New("custodian queue: state not configured")
	errNilLedger     = errors.New("custodian queue: collateral ledger not configured")
	errInvalidAmount = errors.New("custodian queue: amount must be positive")
	errInvalidID     = errors.New("custodian queue: invalid request id")
	errDuplicateID   = errors.New("custodian queue: request id already registered")
	errUnknownID     = errors.New("custodian queue: unknown request id")
)

// Request captures a registered withdrawal: the collateral amount the custodian
// will release and the account it pays out to.
type Request struct {
	ID          *big.Int
	Amount      *big.Int
	Beneficiary [20]byte
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := &Request{Beneficiary: r.Beneficiary}
	if r.ID != nil {
		clone.ID = new(big.Int).Set(r.ID)
	}
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	}
	return clone
}

// queueState describes the persistence surface the queue requires.
type queueState interface {
	CustodianRequest(id *big.Int) (*Request, bool, error)
	PutCustodianRequest(request *Request) error
	DeleteCustodianRequest(id *big.Int) error
}

// CollateralLedger is the slice of the collateral token the queue consumes.
type CollateralLedger interface {
	BalanceOf(holder [20]byte) (*big.Int, error)
	TransferFrom(from, to [20]byte, amount *big.Int) error
}

// Queue is the in-process custodian withdrawal queue.
type Queue struct {
	state      queueState
	collateral CollateralLedger
	address    [20]byte
}

// NewQueue constructs a queue holding custody of withdrawal collateral under
// the provided address.
func NewQueue(address [20]byte) *Queue {
	return &Queue{address: address}
}

// SetState wires the queue to the external persistence layer.
func (q *Queue) SetState(state queueState) { q.state = state }

// SetCollateral wires the collateral ledger used for payouts.
func (q *Queue) SetCollateral(ledger CollateralLedger) { q.collateral = ledger }

// Address returns the queue's custody account.
func (q *Queue) Address() [20]byte {
	if q == nil {
		return [20]byte{}
	}
	return q.address
}

func (q *Queue) ready() error {
	if q == nil || q.state == nil {
		return errNilState
	}
	if q.collateral == nil {
		return errNilLedger
	}
	return nil
}

// RegisterWithdrawal records a withdrawal request the custodian has approved.
// The id must be fresh; amounts must be positive.
func (q *Queue) RegisterWithdrawal(id *big.Int, beneficiary [20]byte, amount *big.Int) error {
	if err := q.ready(); err != nil {
		return err
	}
	if id == nil || id.Sign() < 0 {
		return errInvalidID
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if _, exists, err := q.state.CustodianRequest(id); err != nil {
		return err
	} else if exists {
		return errDuplicateID
	}
	return q.state.PutCustodianRequest(&Request{
		ID:          new(big.Int).Set(id),
		Amount:      new(big.Int).Set(amount),
		Beneficiary: beneficiary,
	})
}

// ClaimWithdrawal releases the collateral backing a registered request to its
// beneficiary and retires the id. Unknown ids fail.
func (q *Queue) ClaimWithdrawal(id *big.Int) error {
	if err := q.ready(); err != nil {
		return err
	}
	if id == nil {
		return errInvalidID
	}
	request, ok, err := q.state.CustodianRequest(id)
	if err != nil {
		return err
	}
	if !ok || request == nil {
		return errUnknownID
	}
	if err := q.state.DeleteCustodianRequest(id); err != nil {
		return err
	}
	return q.collateral.TransferFrom(q.address, request.Beneficiary, request.Amount)
}
