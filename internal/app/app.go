package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ad-anomaly-alerts/internal/alerting"
	"ad-anomaly-alerts/internal/api"
	"ad-anomaly-alerts/internal/config"
	"ad-anomaly-alerts/internal/instrumentation"
	"ad-anomaly-alerts/internal/reportcache"
	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
	"ad-anomaly-alerts/internal/scheduler"
	"ad-anomaly-alerts/internal/service"
	"ad-anomaly-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openCache(ctx context.Context) (*reportcache.Cache, error) {
	if !a.Config.Cache.Enabled {
		return nil, nil
	}
	cfg := a.Config.Cache
	return reportcache.Dial(ctx, cfg.RedisURL, cfg.Password, cfg.TTL, a.Logger)
}

// checkKnowledgeBase fails fast when a rule can fire an alert the root-cause
// engine has never heard of.
func (a *App) checkKnowledgeBase() error {
	ids := rules.NewEngine().IDs()
	categories := make([]string, 0, len(ids))
	for _, id := range ids {
		categories = append(categories, rules.CategoryFor(id))
	}
	if err := rootcause.DefaultKnowledgeBase().Validate(categories...); err != nil {
		return fmt.Errorf("knowledge base incomplete: %w", err)
	}
	return nil
}

// runtime holds the optional backends opened for one command.
type runtime struct {
	store    *storage.Store
	cache    *reportcache.Cache
	registry *prometheus.Registry
	metrics  *instrumentation.Metrics
	closers  []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// serviceDeps converts the opened backends into service dependencies without
// leaking typed nil pointers into interfaces.
func (r *runtime) serviceDeps(sched *scheduler.Scheduler, notifier alerting.Notifier) service.Deps {
	deps := service.Deps{Scheduler: sched, Notifier: notifier, Metrics: r.metrics}
	if r.store != nil {
		deps.Reader = r.store
		deps.Diagnoses = r.store
	}
	if r.cache != nil {
		deps.Publisher = r.cache
	}
	return deps
}

func (a *App) openRuntime(ctx context.Context, withCache bool) (*runtime, error) {
	rt := &runtime{registry: prometheus.NewRegistry()}
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.metrics = instrumentation.NewMetrics(rt.registry)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	} else {
		rt.store = store
		rt.closers = append(rt.closers, closeStore)
	}

	if withCache {
		cache, cacheErr := a.openCache(ctx)
		if cacheErr != nil {
			rt.Close()
			return nil, cacheErr
		}
		if cache != nil {
			rt.cache = cache
			rt.closers = append(rt.closers, func() { _ = cache.Close() })
		}
	}
	return rt, nil
}

// Run executes the long-running scan service and its HTTP surface.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.checkKnowledgeBase(); err != nil {
		return err
	}

	rt, err := a.openRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.store == nil {
		return errors.New("database not configured; cannot run scans")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
	}, a.Logger)

	var notifier alerting.Notifier
	if a.Config.Alerting.Enabled {
		notifier = a.newNotifier()
	}
	svc := service.New(a.Config, rt.serviceDeps(sched, notifier), a.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Msg("starting scan service")
		return svc.Run(gctx)
	})

	if a.Config.HTTP.Enabled {
		deps := api.Deps{Diagnoses: rt.store, Diagnoser: svc, Gatherer: rt.registry, Logger: a.Logger}
		if rt.cache != nil {
			deps.Reports = rt.cache
		}
		srv := &http.Server{
			Addr:         a.Config.HTTP.ListenAddr,
			Handler:      api.NewRouter(deps),
			ReadTimeout:  a.Config.HTTP.ReadTimeout,
			WriteTimeout: a.Config.HTTP.WriteTimeout,
		}
		g.Go(func() error {
			a.Logger.Info().Str("addr", srv.Addr).Msg("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("scan service stopped")
	return nil
}

// Migrate applies the SQL migrations under database.migrations_path.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot migrate")
	}
	defer closeStore()

	applied, err := store.Migrate(ctx, a.Config.Database.MigrationsPath)
	if err != nil {
		return err
	}
	for _, f := range applied {
		fmt.Fprintf(a.Out, "applied %s\n", f)
	}
	return nil
}

// ScanOptions configure a one-shot scan.
type ScanOptions struct {
	ClientID string
	AsOf     time.Time
	JSON     bool
	Notify   bool
}

// DiagnoseOptions configure an ad-hoc root-cause analysis.
type DiagnoseOptions struct {
	Category    string
	Conversions float64
	Cost        float64
	JSON        bool
}

// ExportOptions hold parameters for exporting a client's daily metrics.
type ExportOptions struct {
	ClientID  string
	Metric    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	ClientID string
	Limit    int
}

// BackfillOptions configure re-scanning past days.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}
