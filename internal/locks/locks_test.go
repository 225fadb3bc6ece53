package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGlobalLockRejectsConcurrentAcquisition(t *testing.T) {
	c := NewCoordinator()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.WithGlobalLock(func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	require.True(t, c.IsGlobalLocked())

	// Second acquisition fails immediately instead of queueing
	err := c.WithGlobalLock(func() error {
		t.Error("must not run while the lock is held")
		return nil
	})
	require.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)

	// Released lock is available again
	require.False(t, c.IsGlobalLocked())
	require.NoError(t, c.WithGlobalLock(func() error { return nil }))
}

func TestGlobalLockReleasedOnError(t *testing.T) {
	c := NewCoordinator()

	require.Error(t, c.WithGlobalLock(func() error {
		return context.DeadlineExceeded
	}))
	require.False(t, c.IsGlobalLocked())
}

func TestShipmentLockSerializesSameID(t *testing.T) {
	c := NewCoordinator()
	id := uuid.New()

	var active int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithShipmentLock(context.Background(), id, func() error {
				require.Equal(t, int32(1), atomic.AddInt32(&active, 1), "two holders inside the same shipment lock")
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			require.NoError(t, err)
		}()
	}

	wg.Wait()
	require.Equal(t, 0, c.LockedShipmentCount())
}

func TestShipmentLocksForDifferentIDsDoNotContend(t *testing.T) {
	c := NewCoordinator()

	firstHeld := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.WithShipmentLock(context.Background(), uuid.New(), func() error {
			close(firstHeld)
			<-release
			return nil
		})
	}()

	<-firstHeld

	// A different shipment acquires without waiting for the first
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		err := c.WithShipmentLock(context.Background(), uuid.New(), func() error { return nil })
		require.NoError(t, err)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("independent shipment lock blocked behind an unrelated holder")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestShipmentLockRespectsContextCancellation(t *testing.T) {
	c := NewCoordinator()
	id := uuid.New()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.WithShipmentLock(context.Background(), id, func() error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.WithShipmentLock(ctx, id, func() error {
		t.Error("must not run after the context expired")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	// The abandoned waiter must not leak a lock entry
	require.Equal(t, 0, c.LockedShipmentCount())
}

func TestGlobalAndShipmentLocksAreIndependent(t *testing.T) {
	c := NewCoordinator()

	err := c.WithGlobalLock(func() error {
		return c.WithShipmentLock(context.Background(), uuid.New(), func() error { return nil })
	})
	require.NoError(t, err)
}
