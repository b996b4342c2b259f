package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	lockTTL           = 10 * time.Second
	lockAcquireTries  = 5
	lockRetryInterval = 100 * time.Millisecond
)

// releaseScript deletes the lock key only if it still holds our token,
// so an expired lock taken over by another instance is never released
// by us.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// SystemLocker serializes all mutating operations per commission
// system. In-process, a keyed mutex makes each system single-writer;
// across instances, a Redis SET NX lock covers the same key. Operations
// on different systems never block each other. When Redis is not
// configured the in-process mutex alone applies, and the stores'
// revision checks still catch cross-instance races.
type SystemLocker struct {
	mu     sync.Mutex
	locks  map[primitive.ObjectID]*sync.Mutex
	client *redis.Client
}

// NewSystemLocker creates a locker. client may be nil.
func NewSystemLocker(client *redis.Client) *SystemLocker {
	return &SystemLocker{
		locks:  make(map[primitive.ObjectID]*sync.Mutex),
		client: client,
	}
}

// Lock acquires the write lock for one commission system and returns
// the release function. It fails with ErrConcurrentModification when
// the cross-instance lock cannot be obtained within the bounded retry
// budget.
func (l *SystemLocker) Lock(ctx context.Context, systemID primitive.ObjectID) (func(), error) {
	local := l.localLock(systemID)
	local.Lock()

	if l.client == nil {
		return local.Unlock, nil
	}

	key := "commission_system_lock:" + systemID.Hex()
	token := uuid.NewString()

	for attempt := 0; attempt < lockAcquireTries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			// Redis being down must not take writes down with it; the
			// revision checks remain as the cross-instance guard
			log.Printf("system lock: redis unavailable, proceeding with local lock only: %v", err)
			return local.Unlock, nil
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
					log.Printf("system lock: failed to release %s: %v", key, err)
				}
				local.Unlock()
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			local.Unlock()
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	local.Unlock()
	return nil, ErrConcurrentModification
}

func (l *SystemLocker) localLock(systemID primitive.ObjectID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, exists := l.locks[systemID]
	if !exists {
		lock = &sync.Mutex{}
		l.locks[systemID] = lock
	}
	return lock
}
