package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Task is a unit of scheduled work. ctx ends when the kernel stops.
type Task func(ctx context.Context)

// Kernel manages scheduled tasks
type Kernel struct {
	cron         *cron.Cron
	lockProvider LockProvider
	logger       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// JobOption configures a scheduled job
type JobOption func(*jobConfig)

type jobConfig struct {
	withoutOverlapping bool
	onOneServer        bool
	name               string
	lockFor            time.Duration
}

// NewKernel creates a new scheduler kernel
func NewKernel(lockProvider LockProvider) *Kernel {
	logger := log.Logger.With().Str("component", "scheduler").Logger()
	// Second-level precision; descriptors such as "@every 10s" also parse
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{logger: logger}))
	return &Kernel{
		cron:         c,
		lockProvider: lockProvider,
		logger:       logger,
		ctx:          context.Background(),
	}
}

// SetLockProvider sets the distributed lock provider
func (k *Kernel) SetLockProvider(provider LockProvider) {
	k.lockProvider = provider
}

// Named labels the job in logs
func Named(name string) JobOption {
	return func(c *jobConfig) {
		c.name = name
	}
}

// WithoutOverlapping prevents the job from running if the previous instance is still running (local only)
func WithoutOverlapping() JobOption {
	return func(c *jobConfig) {
		c.withoutOverlapping = true
	}
}

// OnOneServer ensures the job runs on only one server at a time (distributed lock)
func OnOneServer(name string) JobOption {
	return func(c *jobConfig) {
		c.onOneServer = true
		c.name = name
	}
}

// LockFor sets how long the OnOneServer lock is held at most
func LockFor(d time.Duration) JobOption {
	return func(c *jobConfig) {
		c.lockFor = d
	}
}

// Register adds a task to be run on a given schedule.
// Schedule format: "s m h d m w" (Seconds Minutes Hours Day Month Week) or a descriptor.
func (k *Kernel) Register(schedule string, task Task, opts ...JobOption) error {
	cfg := &jobConfig{name: schedule, lockFor: time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	if _, err := k.cron.AddJob(schedule, k.build(cfg, task)); err != nil {
		k.logger.Error().Err(err).Str("job", cfg.name).Str("schedule", schedule).Msg("Failed to register cron job")
		return err
	}
	k.logger.Debug().Str("job", cfg.name).Str("schedule", schedule).Msg("Registered cron job")
	return nil
}

func (k *Kernel) build(cfg *jobConfig, task Task) cron.Job {
	var job cron.Job = cron.FuncJob(func() {
		task(k.ctx)
	})

	// Local mutex via cron.SkipIfStillRunning
	if cfg.withoutOverlapping {
		job = cron.SkipIfStillRunning(cronLogger{logger: k.logger})(job)
	}

	if !cfg.onOneServer {
		return job
	}
	if k.lockProvider == nil {
		k.logger.Warn().Str("job", cfg.name).Msg("Ignoring OnOneServer: LockProvider not initialized")
		return job
	}

	inner := job
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(k.ctx, 10*time.Second)
		defer cancel()

		acquired, err := k.lockProvider.GetLock(ctx, cfg.name, cfg.lockFor)
		if err != nil {
			k.logger.Error().Err(err).Str("job", cfg.name).Msg("Error checking lock for job")
			return
		}
		if !acquired {
			k.logger.Debug().Str("job", cfg.name).Msg("Skipping job: locked by another server")
			return
		}
		defer func() {
			if err := k.lockProvider.ReleaseLock(context.WithoutCancel(k.ctx), cfg.name); err != nil {
				k.logger.Error().Err(err).Str("job", cfg.name).Msg("Error releasing job lock")
			}
		}()
		inner.Run()
	})
}

// Start runs the scheduler in the background until Stop is called or ctx ends
func (k *Kernel) Start(ctx context.Context) {
	k.ctx, k.cancel = context.WithCancel(ctx)
	k.logger.Info().Int("jobs", len(k.cron.Entries())).Msg("Starting Task Scheduler")
	k.cron.Start()
}

// Stop halts the scheduler and waits for running jobs, bounded by ctx
func (k *Kernel) Stop(ctx context.Context) error {
	k.logger.Info().Msg("Stopping Task Scheduler")
	stopped := k.cron.Stop()
	if k.cancel != nil {
		k.cancel()
	}
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
