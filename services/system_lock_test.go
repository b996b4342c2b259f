package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSystemLockerMutualExclusion(t *testing.T) {
	locker := NewSystemLocker(nil)
	systemID := primitive.NewObjectID()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	counter := 0
	inCritical := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, systemID)
			require.NoError(t, err)
			defer unlock()

			inCritical++
			assert.Equal(t, 1, inCritical)
			counter++
			inCritical--
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestSystemLockerIndependentSystems(t *testing.T) {
	locker := NewSystemLocker(nil)
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	defer unlockA()

	// a different system must not wait behind A
	done := make(chan struct{})
	go func() {
		unlockB, err := locker.Lock(ctx, primitive.NewObjectID())
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on an unrelated system blocked")
	}
}

func TestSystemLockerReentryAfterRelease(t *testing.T) {
	locker := NewSystemLocker(nil)
	systemID := primitive.NewObjectID()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, systemID)
	require.NoError(t, err)
	unlock()

	unlock, err = locker.Lock(ctx, systemID)
	require.NoError(t, err)
	unlock()
}
