// Package container wires the dashboard from configuration: the load history
// store, the workbook cache and its watcher, telemetry and the event hub.
package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"kpidash/adapters/memory"
	"kpidash/adapters/postgres"
	"kpidash/internal"
	"kpidash/internal/api"
	"kpidash/internal/cache"
	"kpidash/internal/config"
	"kpidash/internal/dashboard"
	"kpidash/internal/errors"
	"kpidash/internal/loader"
	"kpidash/internal/migration"
	"kpidash/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	History   ports.LoadHistoryRepository
	Telemetry *dashboard.Telemetry
	Cache     *cache.Cache[*loader.Result]
	Service   *dashboard.Service
	Events    *api.EventHub
	Watcher   *cache.FileWatcher

	logger *internal.Logger
}

// New builds every component. With DATABASE_URL set the history goes to
// postgres after running migrations, otherwise it stays in memory.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		logger: internal.DefaultLogger.Named("Container"),
	}

	if cfg.Database.Enabled() {
		if err := c.initDatabase(ctx); err != nil {
			return nil, err
		}
		c.History = postgres.NewLoadHistoryRepository(c.DB)
	} else {
		c.History = memory.NewLoadHistoryRepository(memory.DefaultHistorySize)
		c.logger.Info("DATABASE_URL not set, keeping load history in memory")
	}

	c.Telemetry = dashboard.NewTelemetry()
	c.Cache = cache.New[*loader.Result](cfg.Cache.TTL)
	c.Service = dashboard.NewService(dashboard.SettingsFromConfig(cfg), c.Cache, c.History, c.Telemetry)
	c.Events = api.NewEventHub()

	c.logger.Info("container ready: workbook=%s cache_ttl=%s", c.Service.Path(), cfg.Cache.TTL)
	return c, nil
}

// initDatabase connects and migrates the history database
func (c *Container) initDatabase(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to ping database"))
	}

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		db.Close()
		return errors.Wrap(err, "database migration failed")
	}
	c.DB = db
	c.logger.Info("load history stored in postgres (schema %s)", runner.Version())
	return nil
}

// Start begins watching the workbook when WATCH_FILE is on. A change drops
// the cached table, reloads it and tells connected pages.
func (c *Container) Start(ctx context.Context) error {
	if !c.Config.Cache.WatchFile {
		return nil
	}
	watcher, err := cache.NewFileWatcher(c.Cache)
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	if err := watcher.Add(c.Service.Path()); err != nil {
		watcher.Stop()
		return errors.Wrapf(err, "failed to watch %s", c.Service.Path())
	}
	watcher.OnEvent(func(path string) { c.onFileChanged(ctx, path) })
	watcher.Start(ctx)
	c.Watcher = watcher
	c.logger.Info("watching %s for changes", c.Service.Path())
	return nil
}

func (c *Container) onFileChanged(ctx context.Context, path string) {
	res, err := c.Service.Load(ctx)
	if err != nil {
		c.logger.Warn("reload of %s failed: %v", path, err)
		c.Events.Broadcast(api.Event{Type: api.EventLoadError, Source: path, Message: errors.UserMessage(err)})
		return
	}
	c.Events.Broadcast(api.Event{Type: api.EventReload, Source: path, Rows: res.Table.NumRows()})
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Events != nil {
		c.Events.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
