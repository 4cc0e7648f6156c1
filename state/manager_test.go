package state

import (
	"errors"
	"math/big"
	"testing"

	"restakevault/core/types"
	"restakevault/native/custodian"
	"restakevault/native/strategy"
	"restakevault/native/vault"
	"restakevault/storage"
)

var (
	addrA = [20]byte{0xa1}
	addrB = [20]byte{0xb2}
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestAccountRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	missing, err := mgr.GetAccount(addrA)
	if err != nil {
		t.Fatalf("get missing account: %v", err)
	}
	if missing.BalanceLST.Sign() != 0 || missing.VaultShares.Sign() != 0 {
		t.Fatal("missing account not zeroed")
	}

	account := &types.Account{
		Nonce:       3,
		BalanceLST:  big.NewInt(100),
		BalanceRWD:  big.NewInt(7),
		VaultShares: big.NewInt(42),
	}
	if err := mgr.PutAccount(addrA, account); err != nil {
		t.Fatalf("put account: %v", err)
	}

	loaded, err := mgr.GetAccount(addrA)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 3 || loaded.BalanceLST.Cmp(big.NewInt(100)) != 0 ||
		loaded.BalanceRWD.Cmp(big.NewInt(7)) != 0 || loaded.VaultShares.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestPutAccountRejectsNegativeBalance(t *testing.T) {
	mgr := newTestManager(t)
	account := &types.Account{
		BalanceLST:  big.NewInt(-1),
		BalanceRWD:  big.NewInt(0),
		VaultShares: big.NewInt(0),
	}
	if err := mgr.PutAccount(addrA, account); !errors.Is(err, errNegativeBalance) {
		t.Fatalf("negative balance err = %v, want errNegativeBalance", err)
	}
}

func TestVaultStateRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	empty, err := mgr.VaultState()
	if err != nil {
		t.Fatalf("get empty state: %v", err)
	}
	if empty != nil {
		t.Fatal("expected nil state before initialisation")
	}

	st := vault.NewState()
	st.TotalShares = big.NewInt(1000)
	st.PendingStrategyWithdrawalShares = big.NewInt(30)
	st.Rewards.RewardRate = big.NewInt(10)
	st.Rewards.PeriodFinish = 1_700_001_000
	st.Rewards.RewardPerTokenStored = big.NewInt(5)
	st.Rewards.LastUpdateTime = 1_700_000_000
	if err := mgr.PutVaultState(st); err != nil {
		t.Fatalf("put state: %v", err)
	}

	loaded, err := mgr.VaultState()
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if loaded.TotalShares.Cmp(st.TotalShares) != 0 ||
		loaded.PendingStrategyWithdrawalShares.Cmp(st.PendingStrategyWithdrawalShares) != 0 ||
		loaded.Rewards.RewardRate.Cmp(st.Rewards.RewardRate) != 0 ||
		loaded.Rewards.PeriodFinish != st.Rewards.PeriodFinish ||
		loaded.Rewards.RewardPerTokenStored.Cmp(st.Rewards.RewardPerTokenStored) != 0 ||
		loaded.Rewards.LastUpdateTime != st.Rewards.LastUpdateTime {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestPointAndRewardRecordRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	if _, ok, err := mgr.PointRecord(addrA); err != nil || ok {
		t.Fatalf("missing point record = (%v, %v), want (false, nil)", ok, err)
	}
	point := &vault.PointRecord{
		StakedAssets:       big.NewInt(100),
		AccumulatedPoints:  big.NewInt(2500),
		LastCheckpointTime: 1_700_000_000,
	}
	if err := mgr.PutPointRecord(addrA, point); err != nil {
		t.Fatalf("put point record: %v", err)
	}
	loadedPoint, ok, err := mgr.PointRecord(addrA)
	if err != nil || !ok {
		t.Fatalf("get point record = (%v, %v)", ok, err)
	}
	if loadedPoint.StakedAssets.Cmp(point.StakedAssets) != 0 ||
		loadedPoint.AccumulatedPoints.Cmp(point.AccumulatedPoints) != 0 ||
		loadedPoint.LastCheckpointTime != point.LastCheckpointTime {
		t.Fatalf("point record mismatch: %+v", loadedPoint)
	}

	reward := &vault.RewardRecord{
		RewardPerTokenPaid: big.NewInt(50),
		Accrued:            big.NewInt(75),
		LastUpdated:        1_700_000_100,
	}
	if err := mgr.PutRewardRecord(addrB, reward); err != nil {
		t.Fatalf("put reward record: %v", err)
	}
	loadedReward, ok, err := mgr.RewardRecord(addrB)
	if err != nil || !ok {
		t.Fatalf("get reward record = (%v, %v)", ok, err)
	}
	if loadedReward.RewardPerTokenPaid.Cmp(reward.RewardPerTokenPaid) != 0 ||
		loadedReward.Accrued.Cmp(reward.Accrued) != 0 {
		t.Fatalf("reward record mismatch: %+v", loadedReward)
	}
}

func TestOutstandingMarkers(t *testing.T) {
	mgr := newTestManager(t)

	id := big.NewInt(77)
	if ok, err := mgr.CustodianWithdrawalOutstanding(id); err != nil || ok {
		t.Fatalf("fresh id outstanding = (%v, %v)", ok, err)
	}
	if err := mgr.SetCustodianWithdrawalOutstanding(id, true); err != nil {
		t.Fatalf("set outstanding: %v", err)
	}
	if ok, err := mgr.CustodianWithdrawalOutstanding(id); err != nil || !ok {
		t.Fatalf("marked id outstanding = (%v, %v), want true", ok, err)
	}
	if err := mgr.SetCustodianWithdrawalOutstanding(id, false); err != nil {
		t.Fatalf("clear outstanding: %v", err)
	}
	if ok, err := mgr.CustodianWithdrawalOutstanding(id); err != nil || ok {
		t.Fatalf("cleared id outstanding = (%v, %v), want false", ok, err)
	}

	root := [32]byte{0xfe}
	if err := mgr.SetStrategyWithdrawalOutstanding(root, true); err != nil {
		t.Fatalf("set strategy outstanding: %v", err)
	}
	if ok, err := mgr.StrategyWithdrawalOutstanding(root); err != nil || !ok {
		t.Fatalf("strategy root outstanding = (%v, %v), want true", ok, err)
	}
}

func TestQueuedWithdrawalRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	root := [32]byte{0x11}
	queued := &strategy.QueuedWithdrawal{
		Descriptor: &vault.WithdrawalDescriptor{
			Staker:     addrA,
			Withdrawer: addrA,
			Nonce:      5,
			StartTime:  1_700_000_000,
			Strategies: [][32]byte{{0x01}},
			Shares:     []*big.Int{big.NewInt(40)},
		},
		Underlying: big.NewInt(60),
	}
	if err := mgr.PutQueuedWithdrawal(root, queued); err != nil {
		t.Fatalf("put queued withdrawal: %v", err)
	}
	loaded, ok, err := mgr.QueuedWithdrawal(root)
	if err != nil || !ok {
		t.Fatalf("get queued withdrawal = (%v, %v)", ok, err)
	}
	if loaded.Underlying.Cmp(queued.Underlying) != 0 ||
		loaded.Descriptor.Nonce != queued.Descriptor.Nonce ||
		len(loaded.Descriptor.Shares) != 1 ||
		loaded.Descriptor.Shares[0].Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("queued withdrawal mismatch: %+v", loaded)
	}

	if err := mgr.DeleteQueuedWithdrawal(root); err != nil {
		t.Fatalf("delete queued withdrawal: %v", err)
	}
	if _, ok, err := mgr.QueuedWithdrawal(root); err != nil || ok {
		t.Fatalf("deleted queued withdrawal = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestCustodianRequestRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	request := &custodian.Request{
		ID:          big.NewInt(9),
		Amount:      big.NewInt(120),
		Beneficiary: addrB,
	}
	if err := mgr.PutCustodianRequest(request); err != nil {
		t.Fatalf("put request: %v", err)
	}
	loaded, ok, err := mgr.CustodianRequest(big.NewInt(9))
	if err != nil || !ok {
		t.Fatalf("get request = (%v, %v)", ok, err)
	}
	if loaded.Amount.Cmp(request.Amount) != 0 || loaded.Beneficiary != addrB {
		t.Fatalf("request mismatch: %+v", loaded)
	}
	if err := mgr.DeleteCustodianRequest(big.NewInt(9)); err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if _, ok, err := mgr.CustodianRequest(big.NewInt(9)); err != nil || ok {
		t.Fatalf("deleted request = (%v, %v), want (false, nil)", ok, err)
	}
}
