package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/flowbaker/signalwatch/pkg/integrations/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingMonitor holds every run until release is closed.
type blockingMonitor struct {
	started chan string
	release chan struct{}
	err     error

	mu   sync.Mutex
	runs int
}

func newBlockingMonitor() *blockingMonitor {
	return &blockingMonitor{
		started: make(chan string, 10),
		release: make(chan struct{}),
	}
}

func (m *blockingMonitor) RunWithID(ctx context.Context, runID string, trigger domain.TriggerKind) (domain.RunResult, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()

	m.started <- runID
	<-m.release

	return domain.RunResult{RunID: runID, Trigger: trigger, Fetched: 3}, m.err
}

func (m *blockingMonitor) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.runs
}

func TestRunner_Trigger(t *testing.T) {
	mon := newBlockingMonitor()
	close(mon.release)

	runner := NewRunner(RunnerDependencies{Monitor: mon})

	_, ok := runner.LastResult()
	assert.False(t, ok)

	result, err := runner.Trigger(context.Background(), domain.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerCLI, result.Trigger)

	last, ok := runner.LastResult()
	require.True(t, ok)
	assert.Equal(t, result.RunID, last.RunID)
}

func TestRunner_RecordsFailedRuns(t *testing.T) {
	mon := newBlockingMonitor()
	mon.err = domain.ErrFetchExhausted
	close(mon.release)

	runner := NewRunner(RunnerDependencies{Monitor: mon})

	_, err := runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.ErrorIs(t, err, domain.ErrFetchExhausted)

	last, ok := runner.LastResult()
	require.True(t, ok)
	assert.Contains(t, last.Errors, domain.ErrFetchExhausted.Error())
}

func TestRunner_RejectsOverlap(t *testing.T) {
	mon := newBlockingMonitor()
	runner := NewRunner(RunnerDependencies{Monitor: mon})

	runID, err := runner.Dispatch(context.Background(), domain.TriggerDispatch)
	require.NoError(t, err)
	assert.Equal(t, runID, <-mon.started)

	_, err = runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	_, err = runner.Dispatch(context.Background(), domain.TriggerDispatch)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(mon.release)
	runner.Wait()

	assert.Equal(t, 1, mon.count())

	_, err = runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.NoError(t, err)
}

func TestRunner_DispatchOutlivesRequest(t *testing.T) {
	mon := newBlockingMonitor()
	runner := NewRunner(RunnerDependencies{Monitor: mon})

	ctx, cancel := context.WithCancel(context.Background())
	runID, err := runner.Dispatch(ctx, domain.TriggerDispatch)
	require.NoError(t, err)
	cancel()

	<-mon.started
	close(mon.release)
	runner.Wait()

	last, ok := runner.LastResult()
	require.True(t, ok)
	assert.Equal(t, runID, last.RunID)
}

func TestRunner_DistributedLock(t *testing.T) {
	locker := memory.NewRunLocker()

	token, ok, err := locker.TryLock(context.Background(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mon := newBlockingMonitor()
	close(mon.release)

	runner := NewRunner(RunnerDependencies{Monitor: mon, Locker: locker})

	_, err = runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.ErrorIs(t, err, domain.ErrRunInProgress, "another process holds the lock")

	require.NoError(t, locker.Unlock(context.Background(), token))

	_, err = runner.Trigger(context.Background(), domain.TriggerSchedule)
	require.NoError(t, err)

	// released after the run
	_, ok, err = locker.TryLock(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type brokenLocker struct{}

func (brokenLocker) TryLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func (brokenLocker) Extend(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return false, nil
}

func (brokenLocker) Unlock(ctx context.Context, token string) error { return nil }

// leaseLocker grants every lock and answers renewals with renew.
type leaseLocker struct {
	renew bool

	mu       sync.Mutex
	extends  int
	unlocked []string
}

func (l *leaseLocker) TryLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	return "lease-token", true, nil
}

func (l *leaseLocker) Extend(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.extends++
	return l.renew, nil
}

func (l *leaseLocker) Unlock(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.unlocked = append(l.unlocked, token)
	return nil
}

func (l *leaseLocker) extendCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.extends
}

// contextMonitor runs until its context is cancelled or release closes.
type contextMonitor struct {
	release chan struct{}
}

func (m *contextMonitor) RunWithID(ctx context.Context, runID string, trigger domain.TriggerKind) (domain.RunResult, error) {
	select {
	case <-ctx.Done():
		return domain.RunResult{RunID: runID}, ctx.Err()
	case <-m.release:
		return domain.RunResult{RunID: runID}, nil
	}
}

func TestRunner_RenewsLeaseDuringLongRun(t *testing.T) {
	locker := &leaseLocker{renew: true}
	mon := &contextMonitor{release: make(chan struct{})}

	runner := NewRunner(RunnerDependencies{Monitor: mon, Locker: locker, LockTTL: 30 * time.Millisecond})

	_, err := runner.Dispatch(context.Background(), domain.TriggerDispatch)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return locker.extendCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	close(mon.release)
	runner.Wait()

	last, ok := runner.LastResult()
	require.True(t, ok)
	assert.Empty(t, last.Errors)
	assert.Equal(t, []string{"lease-token"}, locker.unlocked)
}

func TestRunner_LostLeaseCancelsRun(t *testing.T) {
	locker := &leaseLocker{renew: false}
	mon := &contextMonitor{release: make(chan struct{})}

	runner := NewRunner(RunnerDependencies{Monitor: mon, Locker: locker, LockTTL: 30 * time.Millisecond})

	_, err := runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, locker.extendCount())
	assert.Equal(t, []string{"lease-token"}, locker.unlocked)

	// both locks are free again
	go close(mon.release)
	_, err = runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.NotErrorIs(t, err, domain.ErrRunInProgress)
}

func TestRunner_LockError(t *testing.T) {
	mon := newBlockingMonitor()
	close(mon.release)

	runner := NewRunner(RunnerDependencies{Monitor: mon, Locker: brokenLocker{}})

	_, err := runner.Trigger(context.Background(), domain.TriggerSchedule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, 0, mon.count())

	// the in-process lock was released
	_, err = runner.Trigger(context.Background(), domain.TriggerSchedule)
	assert.NotErrorIs(t, err, domain.ErrRunInProgress)
}
