package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/telldus-integration/internal/pkg/config"
	"github.com/anicoll/telldus-integration/internal/pkg/database"
	"github.com/anicoll/telldus-integration/internal/pkg/database/migration"
	"github.com/anicoll/telldus-integration/internal/pkg/mqtt"
	"github.com/anicoll/telldus-integration/internal/pkg/poller"
	"github.com/anicoll/telldus-integration/internal/pkg/publisher"
	"github.com/anicoll/telldus-integration/internal/pkg/server"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
	"github.com/anicoll/telldus-integration/pkg/hasher"
)

var ErrValidation = errors.New("could not reach the telldus hub or it reported no devices")

const (
	tokenExpiryWarning = 7 * 24 * time.Hour
	shutdownTimeout    = 5 * time.Second
)

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("poll-interval") {
		cfg.Telldus.PollInterval = poller.ClampInterval(ctx.Duration("poll-interval"))
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// ServeCommand runs the integration until interrupted.
func ServeCommand(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	hub, err := telldus.New(cfg.Telldus.Host, cfg.Telldus.Token)
	if err != nil {
		return err
	}
	return run(ctx.Context, cfg, hub, logger)
}

// DevicesCommand refreshes the hub once and prints every device.
func DevicesCommand(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)

	hub, err := telldus.New(cfg.Telldus.Host, cfg.Telldus.Token)
	if err != nil {
		return err
	}
	if !hub.Refresh(ctx.Context) {
		return ErrValidation
	}
	for _, d := range hub.Devices() {
		fmt.Fprintln(ctx.App.Writer, d.String())
	}
	return nil
}

// HashKeyCommand prints the bcrypt hash of the given API key, generating a
// key when none is given.
func HashKeyCommand(ctx *cli.Context) error {
	key := ctx.Args().First()
	if key == "" {
		var err error
		if key, err = hasher.GenerateKey(32); err != nil {
			return err
		}
	}
	hash, err := hasher.HashKey([]byte(key))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "key:  %s\nhash: %s\n", key, hash)
	return nil
}

func run(ctx context.Context, cfg *config.Config, hub Hub, logger *zap.Logger) error {
	defer zap.ReplaceGlobals(logger)()

	if !hub.ValidateConnectivity(ctx) {
		return ErrValidation
	}
	warnTokenExpiry(cfg.Telldus.Token, time.Now(), logger)

	parent := ctx
	eg, ctx := errgroup.WithContext(ctx)
	registry := publisher.New()

	events := server.NewEvents(hub)
	defer events.Close()
	if err := registry.RegisterPublisher("websocket", events); err != nil {
		return err
	}

	if cfg.MQTT.Enabled() {
		mqttSvc := mqtt.New(cfg.MQTT, hub)
		if err := mqttSvc.Connect(ctx); err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer mqttSvc.Close()
		if err := registry.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	opts := []server.Option{server.WithEvents(events), server.WithAPIKeyHash(cfg.HTTP.APIKeyHash)}
	if cfg.Database.Enabled() {
		if cfg.Database.MigrationsFolder != "" {
			if err := migration.Migrate(cfg.Database.URL, cfg.Database.MigrationsFolder); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		db, err := database.New(ctx, cfg.Database.URL, hub)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := registry.RegisterPublisher("postgres", db); err != nil {
			return err
		}
		opts = append(opts, server.WithHistory(db))

		eg.Go(func() error {
			return cronCleanup(ctx, db, cfg.Database)
		})
	}
	logger.Info("publishers registered", zap.Strings("publishers", registry.Names()))

	p := poller.New(hub, registry, cfg.Telldus.PollInterval)
	logger.Info("polling telldus hub", zap.Duration("interval", p.Interval()))
	eg.Go(func() error {
		return p.Run(ctx)
	})

	srv := newHTTPServer(cfg.HTTP.Addr, server.New(hub, registry, opts...))
	eg.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("context done")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && parent.Err() == nil {
		return err
	}
	return nil
}

// newHTTPServer leaves commands enough time to wait out a slow hub.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:      handler,
		Addr:         addr,
		WriteTimeout: telldus.RequestTimeout + 15*time.Second,
		ReadTimeout:  15 * time.Second,
	}
}

func warnTokenExpiry(token string, now time.Time, logger *zap.Logger) {
	expires, err := telldus.TokenExpiry(token)
	if err != nil {
		logger.Debug("token expiry unknown", zap.Error(err))
		return
	}
	switch {
	case !expires.After(now):
		logger.Warn("telldus token has expired", zap.Time("expires", expires))
	case expires.Sub(now) < tokenExpiryWarning:
		logger.Warn("telldus token expires soon", zap.Time("expires", expires))
	default:
		logger.Info("telldus token valid", zap.Time("expires", expires))
	}
}

type cleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

func cronCleanup(ctx context.Context, db cleaner, cfg config.DatabaseConfig) error {
	cleanup := func() {
		deleted, err := db.Cleanup(ctx, cfg.Retention)
		if err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
			return
		}
		zap.L().Info("removed old readings", zap.Int64("deleted", deleted))
	}
	cleanup()

	c := cron.New()
	if _, err := c.AddFunc(cfg.CleanupSchedule, cleanup); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
