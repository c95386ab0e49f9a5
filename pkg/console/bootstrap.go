package console

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrione/offline-sync/pkg/audit"
	"github.com/agrione/offline-sync/pkg/config"
	"github.com/agrione/offline-sync/pkg/connectivity"
	"github.com/agrione/offline-sync/pkg/database"
	"github.com/agrione/offline-sync/pkg/notice"
	"github.com/agrione/offline-sync/pkg/offline"
	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/agrione/offline-sync/pkg/remote"
	"github.com/agrione/offline-sync/pkg/schedule"
	"github.com/agrione/offline-sync/pkg/store"
	"github.com/agrione/offline-sync/pkg/worker"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// App is the wired offline queue and the connections behind it
type App struct {
	Config   *config.Config
	Service  *offline.Service
	Registry *queue.Registry
	Prober   *connectivity.Prober
	Lock     schedule.LockProvider
	Notices  *notice.ChannelNotifier

	dbs map[string]*sql.DB
	rdb *redis.Client
}

// Bootstrap builds an App from configuration. It probes connectivity once and
// restores the persisted queue. Call Close when done.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	st, err := app.buildStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	sender, err := app.buildSender(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Registry = queue.NewRegistry()
	remote.NewDeliverer(sender, cfg.Sync.DropPermanent).RegisterHandlers(app.Registry)

	recorder, err := app.buildRecorder(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	if app.Lock, err = app.buildLock(ctx); err != nil {
		app.Close()
		return nil, err
	}

	runner := worker.NewRunner(app.Registry, recorder)
	runner.MaxAttempts = cfg.Sync.MaxAttempts
	runner.ActionTimeout = cfg.Sync.ActionTimeout
	runner.DropPermanent = cfg.Sync.DropPermanent

	healthURL := cfg.Connectivity.HealthURL
	if healthURL == "" {
		healthURL = cfg.API.BaseURL
	}
	app.Prober = connectivity.NewProber(healthURL, cfg.Connectivity.Timeout, false)
	app.Prober.Probe(ctx)

	app.Notices = notice.NewChannelNotifier(64)
	notifier := notice.Multi{
		notice.NewLogNotifierWith(log.Logger.With().Str("component", "notice").Logger()),
		app.Notices,
	}

	app.Service = offline.New(offline.Options{
		Store:         st,
		SlotKey:       cfg.Store.Key,
		Runner:        runner,
		Connectivity:  app.Prober,
		Notifier:      notifier,
		Lock:          app.Lock,
		SyncOnEnqueue: cfg.Sync.OnEnqueue,
	})
	if err := app.Service.Init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close waits for background passes and releases connections
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.Dispose()
	}
	var errs []error
	for _, db := range a.dbs {
		errs = append(errs, db.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	return errors.Join(errs...)
}

func (a *App) redisClient() *redis.Client {
	if a.rdb == nil {
		cfg := a.Config.Redis
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	return a.rdb
}

// sqlDB opens one pool per connection name. An empty name means the
// configured DB_CONNECTION.
func (a *App) sqlDB(connection string) (*sql.DB, string, error) {
	cfg := a.Config.Database
	if connection != "" {
		cfg.Connection = connection
	}
	driver, err := database.DriverName(cfg.Connection)
	if err != nil {
		return nil, "", err
	}
	if db, ok := a.dbs[driver]; ok {
		return db, driver, nil
	}
	db, err := database.NewFactory(a.Config.App.DataDir).Connect(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("connect %s: %w", driver, err)
	}
	if a.dbs == nil {
		a.dbs = make(map[string]*sql.DB)
	}
	a.dbs[driver] = db
	return db, driver, nil
}

func (a *App) buildStore(ctx context.Context) (store.Store, error) {
	cfg := a.Config.Store
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory store: the queue will not survive a restart")
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(a.redisClient()), nil
	case "memcached":
		log.Warn().Msg("Memcached may evict the queue slot under memory pressure")
		return store.NewMemcachedStore(memcache.New(a.Config.Memcached.Servers...)), nil
	case "sqlite", "database":
		connection := ""
		if cfg.Driver == "sqlite" {
			connection = "sqlite"
		}
		db, driver, err := a.sqlDB(connection)
		if err != nil {
			return nil, err
		}
		s := store.NewDatabaseStore(db, cfg.Table, driver)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
}

func (a *App) buildSender(ctx context.Context) (remote.Sender, error) {
	switch a.Config.API.Transport {
	case "", "http":
		return remote.NewHTTPSender(a.Config.API.BaseURL, a.Config.API.Token, a.Config.API.Timeout), nil
	case "sqs":
		if a.Config.SQS.QueueUrl == "" {
			return nil, errors.New("SQS_QUEUE_URL is required for the sqs transport")
		}
		client, err := config.LoadSQSClient(ctx, a.Config.SQS)
		if err != nil {
			return nil, fmt.Errorf("load sqs client: %w", err)
		}
		return remote.NewSQSSender(client, a.Config.SQS.QueueUrl), nil
	}
	return nil, fmt.Errorf("unsupported api transport: %s", a.Config.API.Transport)
}

func (a *App) buildRecorder(ctx context.Context) (queue.DroppedRecorder, error) {
	switch a.Config.Sync.RecordDropped {
	case "", "none":
		return nil, nil
	case "redis":
		return audit.NewRedisRecorder(a.redisClient(), a.Config.Store.Key), nil
	case "database":
		db, driver, err := a.sqlDB("")
		if err != nil {
			return nil, err
		}
		r := audit.NewDatabaseRecorder(db, a.Config.Sync.DroppedTable, driver)
		if err := r.Migrate(ctx); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported dropped recorder: %s", a.Config.Sync.RecordDropped)
}

func (a *App) buildLock(ctx context.Context) (schedule.LockProvider, error) {
	switch a.Config.Sync.Lock {
	case "", "none":
		log.Debug().Msg("No distributed lock provider configured. Passes are serialized per process only.")
		return nil, nil
	case "redis":
		return schedule.NewRedisLockProvider(a.redisClient()), nil
	case "database":
		db, driver, err := a.sqlDB("")
		if err != nil {
			return nil, err
		}
		p := schedule.NewDatabaseLockProvider(db, driver)
		if err := p.Migrate(ctx); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unsupported lock provider: %s", a.Config.Sync.Lock)
}
