package vault

import "errors"

var (
	ErrNilState            = errors.New("vault: state not configured")
	ErrNilCollaborator     = errors.New("vault: collaborator not configured")
	ErrUnauthorized        = errors.New("vault: unauthorized")
	ErrReentrantCall       = errors.New("vault: reentrant call")
	ErrZeroDeposit         = errors.New("vault: deposit amount must be positive")
	ErrZeroAmount          = errors.New("vault: amount must be positive")
	ErrZeroAddress         = errors.New("vault: zero address")
	ErrZeroShareSupply     = errors.New("vault: share supply is zero")
	ErrInsufficientBalance = errors.New("vault: insufficient balance")
	ErrInsufficientShares  = errors.New("vault: insufficient shares")
	ErrInvalidWithdrawal   = errors.New("vault: invalid withdrawal")
	ErrWithdrawalsDisabled = errors.New("vault: withdrawals disabled")
	ErrZeroRewardRate      = errors.New("vault: reward rate is zero")
	ErrPendingUnderflow    = errors.New("vault: pending strategy withdrawal shares underflow")
	ErrPointsUnderflow     = errors.New("vault: staked asset tracker underflow")
)
