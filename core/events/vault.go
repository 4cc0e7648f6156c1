package events

import (
	"math/big"
	"strconv"

	"restakevault/core/types"
)

const (
	// TypeVaultDeposited captures collateral entering the vault and the shares minted for it.
	TypeVaultDeposited = "vault.deposited"
	// TypeVaultSharesTransferred captures a holder-to-holder share transfer.
	TypeVaultSharesTransferred = "vault.sharesTransferred"
	// TypeVaultStrategyDelegated captures collateral delegated into the strategy venue.
	TypeVaultStrategyDelegated = "vault.strategyDelegated"
	// TypeVaultCustodianWithdrawalInitiated is emitted per request id recorded as outstanding.
	TypeVaultCustodianWithdrawalInitiated = "vault.custodian.withdrawalInitiated"
	// TypeVaultCustodianWithdrawalClaimed is emitted per request id claimed from the custodian queue.
	TypeVaultCustodianWithdrawalClaimed = "vault.custodian.withdrawalClaimed"
	// TypeVaultStrategyWithdrawalInitiated is emitted when strategy shares enter the withdrawal queue.
	TypeVaultStrategyWithdrawalInitiated = "vault.strategy.withdrawalInitiated"
	// TypeVaultStrategyWithdrawalClaimed is emitted when a queued strategy withdrawal completes.
	TypeVaultStrategyWithdrawalClaimed = "vault.strategy.withdrawalClaimed"
	// TypeVaultRewardsFunded is emitted when a new reward period is notified.
	TypeVaultRewardsFunded = "vault.rewardsFunded"
	// TypeVaultRewardsClaimed is emitted when accrued rewards are paid out.
	TypeVaultRewardsClaimed = "vault.rewardsClaimed"
)

// VaultDeposited captures the share delta realised when depositing collateral.
type VaultDeposited struct {
	Receiver [20]byte
	Assets   *big.Int
	Shares   *big.Int
	NewTotal *big.Int
}

// EventType satisfies the Event interface.
func (VaultDeposited) EventType() string { return TypeVaultDeposited }

// Event converts the structured payload into a broadcastable event.
func (e VaultDeposited) Event() *types.Event {
	return &types.Event{Type: TypeVaultDeposited, Attributes: map[string]string{
		"addr":     formatAddress(e.Receiver),
		"assets":   formatAmount(e.Assets),
		"shares":   formatAmount(e.Shares),
		"newTotal": formatAmount(e.NewTotal),
	}}
}

// VaultSharesTransferred captures a transfer of vault shares between holders.
type VaultSharesTransferred struct {
	From   [20]byte
	To     [20]byte
	Shares *big.Int
}

func (VaultSharesTransferred) EventType() string { return TypeVaultSharesTransferred }

// Event converts the structured payload into a broadcastable event.
func (e VaultSharesTransferred) Event() *types.Event {
	return &types.Event{Type: TypeVaultSharesTransferred, Attributes: map[string]string{
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"shares": formatAmount(e.Shares),
	}}
}

// VaultStrategyDelegated captures collateral moved into the strategy venue and the
// venue shares received for it.
type VaultStrategyDelegated struct {
	Amount *big.Int
	Shares *big.Int
}

func (VaultStrategyDelegated) EventType() string { return TypeVaultStrategyDelegated }

// Event converts the structured payload into a broadcastable event.
func (e VaultStrategyDelegated) Event() *types.Event {
	return &types.Event{Type: TypeVaultStrategyDelegated, Attributes: map[string]string{
		"amount": formatAmount(e.Amount),
		"shares": formatAmount(e.Shares),
	}}
}

// CustodianWithdrawalInitiated records a custodian request id entering the outstanding set.
type CustodianWithdrawalInitiated struct {
	RequestID *big.Int
}

func (CustodianWithdrawalInitiated) EventType() string {
	return TypeVaultCustodianWithdrawalInitiated
}

// Event converts the structured payload into a broadcastable event.
func (e CustodianWithdrawalInitiated) Event() *types.Event {
	return &types.Event{Type: TypeVaultCustodianWithdrawalInitiated, Attributes: map[string]string{
		"requestId": formatAmount(e.RequestID),
	}}
}

// CustodianWithdrawalClaimed records a custodian request id leaving the outstanding set.
type CustodianWithdrawalClaimed struct {
	RequestID *big.Int
}

func (CustodianWithdrawalClaimed) EventType() string { return TypeVaultCustodianWithdrawalClaimed }

// Event converts the structured payload into a broadcastable event.
func (e CustodianWithdrawalClaimed) Event() *types.Event {
	return &types.Event{Type: TypeVaultCustodianWithdrawalClaimed, Attributes: map[string]string{
		"requestId": formatAmount(e.RequestID),
	}}
}

// StrategyWithdrawalInitiated records a strategy withdrawal root entering the outstanding set.
type StrategyWithdrawalInitiated struct {
	Root   [32]byte
	Shares *big.Int
}

func (StrategyWithdrawalInitiated) EventType() string { return TypeVaultStrategyWithdrawalInitiated }

// Event converts the structured payload into a broadcastable event.
func (e StrategyWithdrawalInitiated) Event() *types.Event {
	return &types.Event{Type: TypeVaultStrategyWithdrawalInitiated, Attributes: map[string]string{
		"root":   formatDigest(e.Root),
		"shares": formatAmount(e.Shares),
	}}
}

// StrategyWithdrawalClaimed records completion of a queued strategy withdrawal.
type StrategyWithdrawalClaimed struct {
	Root   [32]byte
	Shares *big.Int
}

func (StrategyWithdrawalClaimed) EventType() string { return TypeVaultStrategyWithdrawalClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StrategyWithdrawalClaimed) Event() *types.Event {
	return &types.Event{Type: TypeVaultStrategyWithdrawalClaimed, Attributes: map[string]string{
		"root":   formatDigest(e.Root),
		"shares": formatAmount(e.Shares),
	}}
}

// VaultRewardsFunded captures a reward period notification.
type VaultRewardsFunded struct {
	Amount       *big.Int
	Rate         *big.Int
	PeriodFinish uint64
}

func (VaultRewardsFunded) EventType() string { return TypeVaultRewardsFunded }

// Event converts the structured payload into a broadcastable event.
func (e VaultRewardsFunded) Event() *types.Event {
	return &types.Event{Type: TypeVaultRewardsFunded, Attributes: map[string]string{
		"amount":       formatAmount(e.Amount),
		"rate":         formatAmount(e.Rate),
		"periodFinish": strconv.FormatUint(e.PeriodFinish, 10),
	}}
}

// VaultRewardsClaimed captures a reward payout to a holder.
type VaultRewardsClaimed struct {
	Account [20]byte
	Amount  *big.Int
}

func (VaultRewardsClaimed) EventType() string { return TypeVaultRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e VaultRewardsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeVaultRewardsClaimed, Attributes: map[string]string{
		"addr":   formatAddress(e.Account),
		"amount": formatAmount(e.Amount),
	}}
}
