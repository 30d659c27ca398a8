package database

import (
	"context"
	"sync"
	"time"

	logg "server/internal/logger"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	uploadLockTTL       = 2 * time.Minute
	uploadLockRetryWait = 100 * time.Millisecond
)

// Release only if we still hold the lock, so an expired holder cannot drop
// someone else's lock.
const uploadLockReleaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// UploadLock serializes voter roll uploads per election. Reconciliation
// reads the stored roll, diffs it, and writes the result, so two concurrent
// uploads for the same election must not interleave; uploads for different
// elections never contend.
//
// With a valkey client the lock works across server instances; without one
// it falls back to in-process mutexes, which is sufficient for the
// single-node sqlite deployment.
type UploadLock struct {
	client  CacheClient
	mu      sync.Mutex
	local   map[string]*sync.Mutex
	release *valkey.Lua
	log     logg.Logger
}

func NewUploadLock(client CacheClient) *UploadLock {
	lock := &UploadLock{
		client: client,
		local:  make(map[string]*sync.Mutex),
		log:    logg.New("database").File("lock"),
	}
	if client != nil {
		lock.release = valkey.NewLuaScript(uploadLockReleaseScript)
	}
	return lock
}

// WithLock runs fn while holding the election's upload lock, blocking until
// the lock is acquired or ctx is done.
func (l *UploadLock) WithLock(ctx context.Context, electionID string, fn func() error) error {
	if l.client == nil {
		return l.withLocalLock(electionID, fn)
	}
	return l.withDistributedLock(ctx, electionID, fn)
}

func (l *UploadLock) withLocalLock(electionID string, fn func() error) error {
	l.mu.Lock()
	mutex, ok := l.local[electionID]
	if !ok {
		mutex = &sync.Mutex{}
		l.local[electionID] = mutex
	}
	l.mu.Unlock()

	mutex.Lock()
	defer mutex.Unlock()
	return fn()
}

func (l *UploadLock) withDistributedLock(ctx context.Context, electionID string, fn func() error) error {
	log := l.log.Function("withDistributedLock")

	key := "upload-lock:" + electionID
	token := uuid.New().String()

	for {
		resp := l.client.Do(ctx, l.client.B().Set().Key(key).Value(token).Nx().Px(uploadLockTTL).Build())
		if err := resp.Error(); err == nil {
			break
		} else if !valkey.IsValkeyNil(err) {
			return log.Err("failed to acquire upload lock", err, "electionID", electionID)
		}

		select {
		case <-ctx.Done():
			return log.Err("gave up waiting for upload lock", ctx.Err(), "electionID", electionID)
		case <-time.After(uploadLockRetryWait):
		}
	}

	defer func() {
		if err := l.release.Exec(context.Background(), l.client, []string{key}, []string{token}).Error(); err != nil {
			log.Er("failed to release upload lock", err, "electionID", electionID)
		}
	}()

	return fn()
}
