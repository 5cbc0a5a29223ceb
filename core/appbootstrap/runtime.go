package appbootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fusionguard/api"
	"fusionguard/config"
	"fusionguard/core/auth"
	"fusionguard/core/bootstrap"
	"fusionguard/core/identity"
	"fusionguard/core/kv"
	"fusionguard/core/notify"
	"fusionguard/core/rbac"
	"fusionguard/core/settings"
	"fusionguard/core/store"
	"fusionguard/core/system"
	"fusionguard/core/telemetry"
	"fusionguard/core/utils"
)

type Runtime struct {
	Backend    kv.Backend
	Server     *api.Server
	Identities *identity.Directory
	background api.BackgroundController
	closers    []func() error
	logger     *utils.Logger

	mu       sync.Mutex
	bgCancel context.CancelFunc
}

// OpenBackend builds the key/value backend selected by storage.backend. SQL
// backends are migrated before use.
func OpenBackend(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (kv.Backend, error) {
	switch cfg.Storage.Backend {
	case "memory":
		logger.Printf("storage backend memory")
		return kv.NewMemoryBackend(), nil
	case "redis":
		b, err := store.NewRedisBackend(ctx, cfg.Storage.Redis, cfg.BrowserSessionTTL)
		if err != nil {
			return nil, fmt.Errorf("redis init: %w", err)
		}
		logger.Printf("storage backend redis addr=%s", cfg.Storage.Redis.Addr)
		return b, nil
	default:
		if err := EnsureStorageDirs(cfg, logger); err != nil {
			return nil, err
		}
		db, err := store.NewDB(cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("db init: %w", err)
		}
		if err := store.ApplyMigrations(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return store.NewSQLBackend(db), nil
	}
}

func InitRuntime(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*Runtime, error) {
	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt, err := composeRuntime(ctx, cfg, backend, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return rt, nil
}

func composeRuntime(ctx context.Context, cfg *config.AppConfig, backend kv.Backend, logger *utils.Logger) (*Runtime, error) {
	rt := &Runtime{Backend: backend, logger: logger}
	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	if err != nil {
		return nil, err
	}
	global := backend.Scope(kv.GlobalScope)
	dir := identity.NewDirectory(global, auth.NewHasher(cfg.Pepper), logger)
	if err := bootstrap.EnsureSeedIdentities(ctx, dir, logger); err != nil {
		return nil, err
	}
	rt.Identities = dir
	modes := system.NewService(global, logger)
	prefs := settings.NewService(global, logger)

	publishers := []notify.Publisher{notify.NewLogPublisher(logger)}
	if cfg.Notifications.AMQP.Enabled {
		pub, err := notify.NewAMQPPublisher(cfg.Notifications.AMQP, logger)
		if err != nil {
			rt.close()
			return nil, err
		}
		publishers = append(publishers, pub)
		rt.closers = append(rt.closers, pub.Close)
	}
	sinks := []telemetry.Sink{notify.NewAlertSink(prefs, logger, publishers...)}
	if cfg.Telemetry.MQTT.Enabled {
		pub, err := telemetry.NewMQTTPublisher(cfg.Telemetry.MQTT, logger)
		if err != nil {
			rt.close()
			return nil, err
		}
		sinks = append(sinks, pub)
		rt.closers = append(rt.closers, func() error { pub.Close(); return nil })
	}

	ambient := telemetry.NewFeed(telemetry.FeedConfig{
		Interval:         cfg.Telemetry.Interval,
		AlertProbability: cfg.Telemetry.AlertProbability,
		Mode:             modes,
		Sinks:            sinks,
		Logger:           logger.With("worker", "telemetry_feed"),
	})
	newFeed := func() *telemetry.Feed {
		return telemetry.NewFeed(telemetry.FeedConfig{
			Interval:         cfg.Telemetry.Interval,
			AlertProbability: cfg.Telemetry.AlertProbability,
			Mode:             modes,
			Logger:           logger,
		})
	}

	var workers []api.NamedWorker
	if cfg.Telemetry.AmbientFeed {
		workers = append(workers, api.NamedWorker{Name: "telemetry_feed", Worker: ambient})
	}
	var janitor *store.Janitor
	if purger, ok := backend.(store.IdlePurger); ok && cfg.Janitor.Enabled {
		janitor, err = store.NewJanitor(purger, cfg.BrowserSessionTTL, cfg.Janitor.Spec, logger.With("worker", "kv_janitor"))
		if err != nil {
			rt.close()
			return nil, err
		}
		workers = append(workers, api.NamedWorker{Name: "kv_janitor", Worker: janitor})
	}

	rt.Server = api.NewServer(cfg, logger, api.ServerDeps{
		Backend:    backend,
		Policy:     policy,
		Identities: dir,
		System:     modes,
		Settings:   prefs,
		Ambient:    ambient,
		NewFeed:    newFeed,
		Janitor:    janitor,
	})
	reset := func(ctx context.Context) error {
		_, err := bootstrap.RevokeBrowserSessions(ctx, backend, logger)
		return err
	}
	rt.background = api.BuildBackgroundController(reset, cfg.Security.RevokeSessionsOnStartup, logger, workers...)
	return rt, nil
}

func (r *Runtime) StartBackground(ctx context.Context) {
	if r == nil || r.background == nil {
		return
	}
	r.mu.Lock()
	if r.bgCancel != nil {
		r.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.bgCancel = cancel
	r.mu.Unlock()
	r.background.Start(runCtx)
}

func (r *Runtime) StopBackground(ctx context.Context) error {
	if r == nil || r.background == nil {
		return nil
	}
	r.mu.Lock()
	cancel := r.bgCancel
	r.bgCancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.background.Stop(ctx)
}

// Close releases publishers and the storage backend.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	err := r.close()
	if r.Backend != nil {
		err = errors.Join(err, r.Backend.Close())
	}
	return err
}

func (r *Runtime) close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
