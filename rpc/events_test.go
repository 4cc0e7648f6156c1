package rpc

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restakevault/core/events"
)

func TestEventHubDeliversToSubscriber(t *testing.T) {
	hub := NewEventHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe, backlog := hub.Subscribe(ctx)
	defer unsubscribe()
	require.Empty(t, backlog)

	hub.Emit(events.VaultDeposited{
		Receiver: [20]byte{0xaa},
		Assets:   big.NewInt(100),
		Shares:   big.NewInt(100),
		NewTotal: big.NewInt(100),
	})

	select {
	case evt := <-updates:
		require.Equal(t, events.TypeVaultDeposited, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventHubReplaysBacklogToLateJoiners(t *testing.T) {
	hub := NewEventHub()
	hub.Emit(events.VaultRewardsClaimed{Account: [20]byte{0xaa}, Amount: big.NewInt(5)})
	hub.Emit(events.VaultRewardsClaimed{Account: [20]byte{0xbb}, Amount: big.NewInt(6)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, unsubscribe, backlog := hub.Subscribe(ctx)
	defer unsubscribe()

	require.Len(t, backlog, 2)
	require.Equal(t, events.TypeVaultRewardsClaimed, backlog[0].Type)
}

func TestEventHubDropsEventsForSlowSubscribers(t *testing.T) {
	hub := NewEventHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsubscribe, _ := hub.Subscribe(ctx)
	defer unsubscribe()

	// Overflow the subscriber buffer; Emit must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Emit(events.VaultRewardsClaimed{Account: [20]byte{0xaa}, Amount: big.NewInt(int64(i))})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on slow subscriber")
	}
	require.Len(t, updates, subscriberBuffer)
}
