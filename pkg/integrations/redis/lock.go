package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const runLockKey = keyPrefix + "run-lock"

// Deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Renews the key's expiry only while it still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RunLocker is a single-holder lease shared by every process pointing at
// the same Redis.
type RunLocker struct {
	client redis.UniversalClient
	key    string
}

type RunLockerDependencies struct {
	Client redis.UniversalClient

	// Key defaults to signalwatch:run-lock.
	Key string
}

func NewRunLocker(deps RunLockerDependencies) *RunLocker {
	l := &RunLocker{
		client: deps.Client,
		key:    deps.Key,
	}

	if l.key == "" {
		l.key = runLockKey
	}

	return l
}

func (l *RunLocker) TryLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire run lock: %w", err)
	}

	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (l *RunLocker) Extend(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	renewed, err := extendScript.Run(ctx, l.client, []string{l.key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to extend run lock: %w", err)
	}

	return renewed == 1, nil
}

func (l *RunLocker) Unlock(ctx context.Context, token string) error {
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	return nil
}
