// Package memory holds process-local implementations of the storage
// ports. They back tests and deployments without Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/google/uuid"
)

type CheckpointStore struct {
	mu     sync.Mutex
	postID string
}

func NewCheckpointStore(initial string) *CheckpointStore {
	return &CheckpointStore{postID: initial}
}

func (s *CheckpointStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.postID, nil
}

func (s *CheckpointStore) Set(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.postID = postID
	return nil
}

func (s *CheckpointStore) Reset(ctx context.Context) error {
	return s.Set(ctx, "")
}

type PostLog struct {
	mu    sync.Mutex
	posts []domain.ProcessedPost
}

func NewPostLog() *PostLog {
	return &PostLog{}
}

func (l *PostLog) Record(ctx context.Context, post domain.ProcessedPost) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, p := range l.posts {
		if p.PostID == post.PostID {
			l.posts[i] = post
			return nil
		}
	}

	l.posts = append(l.posts, post)
	return nil
}

func (l *PostLog) Posts() []domain.ProcessedPost {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]domain.ProcessedPost(nil), l.posts...)
}

type RunLocker struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

func NewRunLocker() *RunLocker {
	return &RunLocker{now: time.Now}
}

func (l *RunLocker) TryLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.token != "" && now.Before(l.expires) {
		return "", false, nil
	}

	l.token = uuid.NewString()
	l.expires = now.Add(ttl)

	return l.token, true, nil
}

func (l *RunLocker) Extend(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if token == "" || token != l.token || !now.Before(l.expires) {
		return false, nil
	}

	l.expires = now.Add(ttl)
	return true, nil
}

func (l *RunLocker) Unlock(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token == l.token {
		l.token = ""
	}

	return nil
}

type ProxyCache struct {
	mu      sync.Mutex
	proxy   string
	expires time.Time
}

func NewProxyCache() *ProxyCache {
	return &ProxyCache{}
}

func (c *ProxyCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proxy == "" || time.Now().After(c.expires) {
		return "", nil
	}

	return c.proxy, nil
}

func (c *ProxyCache) Put(ctx context.Context, proxy string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.proxy = proxy
	c.expires = time.Now().Add(ttl)
	return nil
}

func (c *ProxyCache) Delete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.proxy = ""
	c.expires = time.Time{}
	return nil
}
