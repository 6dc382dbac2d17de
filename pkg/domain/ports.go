package domain

import (
	"context"
	"time"
)

type PostSource interface {
	// FetchPosts returns the latest posts, newest first.
	FetchPosts(ctx context.Context) ([]Post, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// CheckpointStore keeps the id of the newest fully handled post.
type CheckpointStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, postID string) error
	Reset(ctx context.Context) error
}

type PostLog interface {
	Record(ctx context.Context, post ProcessedPost) error
}

// RunLocker guards against overlapping runs across processes.
type RunLocker interface {
	TryLock(ctx context.Context, ttl time.Duration) (token string, ok bool, err error)
	// Extend renews the lease. ok is false when token no longer holds it.
	Extend(ctx context.Context, token string, ttl time.Duration) (ok bool, err error)
	Unlock(ctx context.Context, token string) error
}

type ProxyCache interface {
	Get(ctx context.Context) (string, error)
	Put(ctx context.Context, proxy string, ttl time.Duration) error
	Delete(ctx context.Context) error
}
