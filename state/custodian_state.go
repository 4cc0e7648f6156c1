package state

import (
	"math/big"

	"restakevault/native/custodian"
)

type storedCustodianRequest struct {
	ID          *big.Int
	Amount      *big.Int
	Beneficiary [20]byte
}

// CustodianRequest loads a registered custodian withdrawal request by id.
func (m *Manager) CustodianRequest(id *big.Int) (*custodian.Request, bool, error) {
	stored := new(storedCustodianRequest)
	ok, err := m.KVGet(appendKey(prefixCustodianRequest, bigIntKey(id)), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &custodian.Request{
		ID:          stored.ID,
		Amount:      stored.Amount,
		Beneficiary: stored.Beneficiary,
	}, true, nil
}

// PutCustodianRequest persists a custodian withdrawal request.
func (m *Manager) PutCustodianRequest(request *custodian.Request) error {
	if request == nil {
		return nil
	}
	return m.KVPut(appendKey(prefixCustodianRequest, bigIntKey(request.ID)), &storedCustodianRequest{
		ID:          request.ID,
		Amount:      request.Amount,
		Beneficiary: request.Beneficiary,
	})
}

// DeleteCustodianRequest removes a custodian withdrawal request.
func (m *Manager) DeleteCustodianRequest(id *big.Int) error {
	return m.KVDelete(appendKey(prefixCustodianRequest, bigIntKey(id)))
}
