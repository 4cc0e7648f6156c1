package vault

import (
	"errors"
	"math/big"
	"testing"
)

func TestPendingPointsZeroForUntouchedAccount(t *testing.T) {
	fx := newEngineFixture(t)
	points, err := fx.engine.PendingPoints(aliceAddr)
	if err != nil {
		t.Fatalf("pending points: %v", err)
	}
	if points.Sign() != 0 {
		t.Fatalf("untouched account points = %s, want 0", points)
	}
}

func TestPointsAccrueLinearlyPerHour(t *testing.T) {
	fx := newEngineFixture(t)
	fx.collateral.credit(aliceAddr, 100)
	fx.mustDeposit(t, aliceAddr, aliceAddr, 100)

	fx.clock.advance(3600)
	points, err := fx.engine.PendingPoints(aliceAddr)
	if err != nil {
		t.Fatalf("pending points: %v", err)
	}
	// 100 assets for one hour earn 100 whole points at 1e18 scale.
	want := new(big.Int).Mul(big.NewInt(100), ray)
	if points.Cmp(want) != 0 {
		t.Fatalf("points after 1h = %s, want %s", points, want)
	}

	fx.clock.advance(1800)
	halfLater, err := fx.engine.PendingPoints(aliceAddr)
	if err != nil {
		t.Fatalf("pending points: %v", err)
	}
	want.Add(want, new(big.Int).Mul(big.NewInt(50), ray))
	if halfLater.Cmp(want) != 0 {
		t.Fatalf("points after 1.5h = %s, want %s", halfLater, want)
	}
}

func TestPendingPointsMonotonicUnderDeposits(t *testing.T) {
	fx := newEngineFixture(t)
	fx.collateral.credit(aliceAddr, 300)
	fx.mustDeposit(t, aliceAddr, aliceAddr, 100)

	previous := big.NewInt(0)
	for i := 0; i < 5; i++ {
		fx.clock.advance(600)
		fx.mustDeposit(t, aliceAddr, aliceAddr, 10)
		points, err := fx.engine.PendingPoints(aliceAddr)
		if err != nil {
			t.Fatalf("pending points: %v", err)
		}
		if points.Cmp(previous) < 0 {
			t.Fatalf("points decreased: %s -> %s", previous, points)
		}
		previous = points
	}
}

func TestPointsAccrualNotBackdatedOnFirstTouch(t *testing.T) {
	fx := newEngineFixture(t)
	fx.collateral.credit(aliceAddr, 100)

	// A long stretch of inactivity before the first deposit earns nothing.
	fx.clock.advance(86_400)
	fx.mustDeposit(t, aliceAddr, aliceAddr, 100)
	points, err := fx.engine.PendingPoints(aliceAddr)
	if err != nil {
		t.Fatalf("pending points: %v", err)
	}
	if points.Sign() != 0 {
		t.Fatalf("first-touch points = %s, want 0", points)
	}
}

func TestTransferMovesPointTrackingProRata(t *testing.T) {
	fx := newEngineFixture(t)
	fx.collateral.credit(aliceAddr, 100)
	fx.mustDeposit(t, aliceAddr, aliceAddr, 100)

	fx.clock.advance(3600)
	if err := fx.engine.TransferShares(aliceAddr, bobAddr, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	// The sender keeps everything accrued so far; the receiver starts fresh.
	alicePoints, err := fx.engine.PendingPoints(aliceAddr)
	if err != nil {
		t.Fatalf("alice points: %v", err)
	}
	wantAlice := new(big.Int).Mul(big.NewInt(100), ray)
	if alicePoints.Cmp(wantAlice) != 0 {
		t.Fatalf("alice points = %s, want %s", alicePoints, wantAlice)
	}
	bobPoints, err := fx.engine.PendingPoints(bobAddr)
	if err != nil {
		t.Fatalf("bob points: %v", err)
	}
	if bobPoints.Sign() != 0 {
		t.Fatalf("bob points = %s, want 0 immediately after transfer", bobPoints)
	}

	// Forward accrual follows the moved stake: 60 vs 40 per hour.
	fx.clock.advance(3600)
	alicePoints, err = fx.engine.PendingPoints(aliceAddr)
	if err != nil {
		t.Fatalf("alice points: %v", err)
	}
	wantAlice.Add(wantAlice, new(big.Int).Mul(big.NewInt(60), ray))
	if alicePoints.Cmp(wantAlice) != 0 {
		t.Fatalf("alice points after 2h = %s, want %s", alicePoints, wantAlice)
	}
	bobPoints, err = fx.engine.PendingPoints(bobAddr)
	if err != nil {
		t.Fatalf("bob points: %v", err)
	}
	wantBob := new(big.Int).Mul(big.NewInt(40), ray)
	if bobPoints.Cmp(wantBob) != 0 {
		t.Fatalf("bob points after 1h = %s, want %s", bobPoints, wantBob)
	}
}

func TestCheckpointPointsGuardsUnderflow(t *testing.T) {
	fx := newEngineFixture(t)
	if err := fx.engine.checkpointPoints(aliceAddr, big.NewInt(1), false); !errors.Is(err, ErrPointsUnderflow) {
		t.Fatalf("missing record decrement err = %v, want ErrPointsUnderflow", err)
	}

	fx.collateral.credit(aliceAddr, 10)
	fx.mustDeposit(t, aliceAddr, aliceAddr, 10)
	if err := fx.engine.checkpointPoints(aliceAddr, big.NewInt(11), false); !errors.Is(err, ErrPointsUnderflow) {
		t.Fatalf("oversized decrement err = %v, want ErrPointsUnderflow", err)
	}
}
