package initialization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbaker/signalwatch/internal/config"
	"github.com/flowbaker/signalwatch/internal/monitor"
	"github.com/flowbaker/signalwatch/internal/scheduler"
	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/flowbaker/signalwatch/pkg/integrations/memory"
	mongodb "github.com/flowbaker/signalwatch/pkg/integrations/mongo"
	"github.com/flowbaker/signalwatch/pkg/integrations/proxy"
	"github.com/flowbaker/signalwatch/pkg/integrations/redis"
	"github.com/flowbaker/signalwatch/pkg/integrations/truthsocial"

	"github.com/rs/zerolog/log"
)

const connectTimeout = 15 * time.Second

// Container owns the long-lived clients. Storage is connected eagerly;
// the monitor pipeline is built on demand by BuildRunner.
type Container struct {
	config *config.Config

	Checkpoints domain.CheckpointStore
	PostLog     domain.PostLog
	Locker      domain.RunLocker
	ProxyCache  domain.ProxyCache

	closers []func(ctx context.Context) error
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mongoClient, err := mongodb.Connect(connectCtx, cfg.MongoDBURI)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, mongoClient.Disconnect)

	db := mongoClient.Database(cfg.MongoDatabase)

	c.Checkpoints = mongodb.NewCheckpointStore(mongodb.CheckpointStoreDependencies{
		Collection: db.Collection(mongodb.CheckpointCollection),
	})

	postLog := mongodb.NewPostLog(mongodb.PostLogDependencies{
		Collection: db.Collection(mongodb.PostLogCollection),
	})
	if err := postLog.EnsureIndexes(connectCtx); err != nil {
		log.Warn().Err(err).Msg("Post log index not ensured")
	}
	c.PostLog = postLog

	if cfg.RedisURL == "" {
		log.Debug().Msg("REDIS_URL not set, using in-process run lock and proxy cache")
		c.ProxyCache = memory.NewProxyCache()
		return c, nil
	}

	redisClient, err := redis.Connect(connectCtx, cfg.RedisURL)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	c.closers = append(c.closers, func(context.Context) error { return redisClient.Close() })

	c.Locker = redis.NewRunLocker(redis.RunLockerDependencies{Client: redisClient})
	c.ProxyCache = redis.NewProxyCache(redis.ProxyCacheDependencies{Client: redisClient})

	return c, nil
}

// BuildRunner wires the source, classifier and notifiers into a runner.
func (c *Container) BuildRunner(ctx context.Context) (*scheduler.Runner, error) {
	log.Info().Msg("Building monitor dependencies")

	classifier, err := newClassifier(ctx, c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	source := c.newSource(ctx)

	mon := monitor.NewMonitor(monitor.MonitorDependencies{
		Source:              source,
		Classifier:          classifier,
		Notifier:            newNotifier(c.config),
		Checkpoints:         c.Checkpoints,
		PostLog:             c.PostLog,
		ConfidenceThreshold: c.config.ConfidenceThreshold,
	})

	log.Info().Msg("Monitor dependencies built successfully")

	return scheduler.NewRunner(scheduler.RunnerDependencies{
		Monitor: mon,
		Locker:  c.Locker,
	}), nil
}

func (c *Container) newSource(ctx context.Context) *truthsocial.Client {
	var picker *proxy.Picker
	if c.config.ProxyAuto {
		picker = proxy.NewPicker(proxy.PickerDependencies{Cache: c.ProxyCache})
	}

	initial := proxy.Normalize(c.config.ProxyURL)
	switch {
	case initial != "":
		log.Info().Msg("Using proxy from PROXY_URL")
	case picker != nil:
		picked, err := picker.Pick(ctx)
		if err != nil && !errors.Is(err, domain.ErrNoProxyFound) {
			log.Warn().Err(err).Msg("Proxy hunt failed")
		}
		initial = picked
	}

	if initial == "" {
		log.Info().Msg("No proxy, fetching direct")
	}

	deps := truthsocial.ClientDependencies{
		BaseURL:     c.config.SourceBaseURL,
		AccountID:   c.config.AccountID,
		CFClearance: c.config.CFClearance,
		Proxy:       initial,
		MaxAttempts: c.config.FetchMaxAttempts,
		Backoff:     c.config.FetchBackoff,
		Timeout:     c.config.FetchTimeout,
	}
	if picker != nil {
		deps.Picker = picker
	}

	return truthsocial.NewClient(deps)
}

// Close releases clients in reverse order of creation.
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil

	return errors.Join(errs...)
}
