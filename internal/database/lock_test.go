package database

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadLock_SerializesSameElection(t *testing.T) {
	lock := NewUploadLock(nil)
	ctx := context.Background()

	const workers = 8
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lock.WithLock(ctx, "election-1", func() error {
				// Unsynchronized read-modify-write; the lock is all that
				// keeps this race-free.
				value := counter
				counter = value + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestUploadLock_DifferentElectionsDoNotContend(t *testing.T) {
	lock := NewUploadLock(nil)
	ctx := context.Background()

	release := make(chan struct{})
	firstHeld := make(chan struct{})

	go func() {
		_ = lock.WithLock(ctx, "election-1", func() error {
			close(firstHeld)
			<-release
			return nil
		})
	}()

	<-firstHeld

	// A different election's lock is free while election-1 is held.
	ran := false
	err := lock.WithLock(ctx, "election-2", func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	close(release)
}

func TestUploadLock_PropagatesError(t *testing.T) {
	lock := NewUploadLock(nil)

	err := lock.WithLock(context.Background(), "election-1", func() error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}
