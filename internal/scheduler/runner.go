package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLockTTL bounds how long a crashed holder blocks others. A
	// live run renews its lease every third of the TTL.
	DefaultLockTTL = 2 * time.Minute

	unlockTimeout = 5 * time.Second
)

type Monitor interface {
	RunWithID(ctx context.Context, runID string, trigger domain.TriggerKind) (domain.RunResult, error)
}

// Runner serialises monitor runs. At most one run is in flight per
// process, and per deployment when a RunLocker is configured.
type Runner struct {
	monitor Monitor
	locker  domain.RunLocker
	lockTTL time.Duration

	mu sync.Mutex
	wg sync.WaitGroup

	lastMu sync.RWMutex
	last   *domain.RunResult
}

type RunnerDependencies struct {
	Monitor Monitor

	// Locker is optional.
	Locker  domain.RunLocker
	LockTTL time.Duration
}

func NewRunner(deps RunnerDependencies) *Runner {
	r := &Runner{
		monitor: deps.Monitor,
		locker:  deps.Locker,
		lockTTL: deps.LockTTL,
	}

	if r.lockTTL <= 0 {
		r.lockTTL = DefaultLockTTL
	}

	return r
}

// Trigger runs the monitor and waits for it.
func (r *Runner) Trigger(ctx context.Context, kind domain.TriggerKind) (domain.RunResult, error) {
	token, err := r.acquire(ctx)
	if err != nil {
		return domain.RunResult{}, err
	}

	runCtx, release := r.hold(ctx, token)
	defer release()

	return r.execute(runCtx, uuid.NewString(), kind)
}

// Dispatch starts a run in the background and returns its id. The run
// outlives ctx's cancellation.
func (r *Runner) Dispatch(ctx context.Context, kind domain.TriggerKind) (string, error) {
	token, err := r.acquire(ctx)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	runCtx, release := r.hold(context.WithoutCancel(ctx), token)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()

		_, _ = r.execute(runCtx, runID, kind)
	}()

	return runID, nil
}

// Wait blocks until every dispatched run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) LastResult() (domain.RunResult, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()

	if r.last == nil {
		return domain.RunResult{}, false
	}

	return *r.last, true
}

func (r *Runner) execute(ctx context.Context, runID string, kind domain.TriggerKind) (domain.RunResult, error) {
	result, err := r.monitor.RunWithID(ctx, runID, kind)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	r.lastMu.Lock()
	r.last = &result
	r.lastMu.Unlock()

	return result, err
}

// acquire takes the in-process lock and, when configured, the shared
// lease. The returned token is empty without a locker.
func (r *Runner) acquire(ctx context.Context) (string, error) {
	if !r.mu.TryLock() {
		return "", domain.ErrRunInProgress
	}

	if r.locker == nil {
		return "", nil
	}

	token, ok, err := r.locker.TryLock(ctx, r.lockTTL)
	if err != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("failed to take run lock: %w", err)
	}

	if !ok {
		r.mu.Unlock()
		return "", domain.ErrRunInProgress
	}

	return token, nil
}

// hold keeps the lease alive for the duration of a run. The returned
// context is cancelled if the lease is lost; release frees both locks.
func (r *Runner) hold(parent context.Context, token string) (context.Context, func()) {
	if r.locker == nil {
		return parent, r.mu.Unlock
	}

	ctx, cancel := context.WithCancel(parent)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		r.keepAlive(ctx, cancel, token)
	}()

	return ctx, func() {
		cancel()
		<-stopped

		unlockCtx, cancelUnlock := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancelUnlock()

		if err := r.locker.Unlock(unlockCtx, token); err != nil {
			log.Warn().Err(err).Msg("Failed to release run lock, it will expire on its own")
		}

		r.mu.Unlock()
	}
}

func (r *Runner) keepAlive(ctx context.Context, cancel context.CancelFunc, token string) {
	ticker := time.NewTicker(max(r.lockTTL/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ok, err := r.locker.Extend(ctx, token, r.lockTTL)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			// The lease may still hold; try again next tick.
			log.Warn().Err(err).Msg("Failed to extend run lock")
		case !ok:
			log.Error().Msg("Run lock lost to another holder, cancelling run")
			cancel()
			return
		}
	}
}
