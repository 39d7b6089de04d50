package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/achimid/web-page-notify-api/internal/config"
	"github.com/achimid/web-page-notify-api/internal/dispatch"
	"github.com/achimid/web-page-notify-api/internal/fetch"
	"github.com/achimid/web-page-notify-api/internal/httpapi"
	"github.com/achimid/web-page-notify-api/internal/logging"
	"github.com/achimid/web-page-notify-api/internal/model"
	"github.com/achimid/web-page-notify-api/internal/storage"
	"github.com/achimid/web-page-notify-api/internal/watch"
)

// App wires config, logging, storage, dispatchers, the scheduler and the
// HTTP surface together.
type App struct {
	cfgMgr *config.Manager
	logSvc *logging.Service
	log    *slog.Logger

	store      storage.Store
	dispatcher *dispatch.Service
	hub        *dispatch.Hub
	scheduler  *watch.Scheduler
	api        *httpapi.Server

	cfgSub chan *config.Config
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", cfgPath, err)
	}

	logSvc, log := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logging.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	return &App{cfgMgr: mgr, logSvc: logSvc, log: log}, nil
}

func (a *App) Logger() *slog.Logger { return a.log }

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: busyTimeout})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	a.store = store

	if seedPath := cfg.Watcher.Seed; seedPath != "" {
		seed, err := storage.LoadSeed(seedPath)
		if err != nil {
			return err
		}
		if err := storage.ApplySeed(ctx, store, seed); err != nil {
			return fmt.Errorf("applying seed: %w", err)
		}
		a.log.Info("seed applied",
			slog.Int("tasks", len(seed.Tasks)), slog.Int("owners", len(seed.Owners)))
	}

	fetchTimeout, err := config.ParseDurationField("fetch.timeout", cfg.Fetch.Timeout)
	if err != nil {
		return err
	}
	fetcher := fetch.NewHTTPFetcher(fetch.Config{Timeout: fetchTimeout, UserAgent: cfg.Fetch.UserAgent})
	runner := watch.NewRunner(fetcher, a.log)

	if err := a.buildDispatch(cfg); err != nil {
		return err
	}

	policy := watch.NewPolicy(store, a.log)
	a.scheduler = watch.NewScheduler(store, runner, policy, a.dispatcher, a.log)

	if a.jobsEnabled(cfg) {
		a.scheduler.Start(ctx)
	} else {
		a.log.Info("watch jobs disabled")
	}

	readTimeout, err := config.ParseDurationField("http.read_timeout", cfg.HTTP.ReadTimeout)
	if err != nil {
		return err
	}
	writeTimeout, err := config.ParseDurationField("http.write_timeout", cfg.HTTP.WriteTimeout)
	if err != nil {
		return err
	}
	a.api = httpapi.New(httpapi.Config{
		Enabled:      cfg.HTTP.Enabled,
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}, runner, a.hub, a.log)
	if err := a.api.Start(ctx); err != nil {
		return fmt.Errorf("starting http api: %w", err)
	}

	if err := a.cfgMgr.Watch(ctx, a.log); err != nil {
		a.log.Warn("config watch unavailable", slog.Any("err", err))
	} else {
		a.cfgSub = a.cfgMgr.Subscribe(1)
		go a.applyReloads(ctx)
	}
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.api != nil {
		a.api.Stop(ctx)
	}
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.dispatcher != nil {
		a.dispatcher.Drain()
	}
	if a.cfgSub != nil {
		a.cfgMgr.Unsubscribe(a.cfgSub)
		a.cfgSub = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close", slog.Any("err", err))
		}
	}
	a.logSvc.Close()
	return nil
}

// buildDispatch registers a dispatcher per channel kind that has working
// configuration. Webhook and websocket need none; telegram and email are
// skipped (with a log line) when unconfigured, so tasks pointing at them
// surface "no dispatcher" instead of failing wiring.
func (a *App) buildDispatch(cfg *config.Config) error {
	webhookTimeout, err := config.ParseDurationField("dispatch.webhook_timeout", cfg.Dispatch.WebhookTimeout)
	if err != nil {
		return err
	}

	a.dispatcher = dispatch.New(dispatch.Config{RatePerSec: cfg.Dispatch.RatePerSec}, a.log)
	a.dispatcher.Register(model.ChannelWebhook, dispatch.NewWebhook(webhookTimeout))

	a.hub = dispatch.NewHub(a.log)
	a.dispatcher.Register(model.ChannelWebsocket, a.hub)

	if cfg.Telegram.Token != "" {
		tg, err := dispatch.NewTelegram(dispatch.TelegramConfig{
			Token:         cfg.Telegram.Token,
			DefaultChatID: cfg.Telegram.DefaultChatID,
		})
		if err != nil {
			return fmt.Errorf("telegram dispatcher: %w", err)
		}
		a.dispatcher.Register(model.ChannelTelegram, tg)
	} else {
		a.log.Info("telegram channel not configured")
	}

	if cfg.Email.Host != "" {
		em, err := dispatch.NewEmail(dispatch.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			return fmt.Errorf("email dispatcher: %w", err)
		}
		a.dispatcher.Register(model.ChannelEmail, em)
	} else {
		a.log.Info("email channel not configured")
	}
	return nil
}

// jobsEnabled resolves the process-wide scheduling gate: the
// WATCHD_ENABLE_JOB environment variable wins over the config field when
// set. Checked once at startup, not per tick.
func (a *App) jobsEnabled(cfg *config.Config) bool {
	if v := os.Getenv("WATCHD_ENABLE_JOB"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			a.log.Warn("invalid WATCHD_ENABLE_JOB, using config value", slog.String("value", v))
			return cfg.Watcher.Enabled
		}
		return enabled
	}
	return cfg.Watcher.Enabled
}

// applyReloads picks up hot-reloaded config. Only logging takes effect
// live; schedule and channel changes need a restart.
func (a *App) applyReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgSub:
			if !ok {
				return
			}
			a.logSvc.Apply(logging.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File:    logging.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
			})
			a.log.Info("logging config applied")
		}
	}
}
