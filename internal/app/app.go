package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ProposalLens/internal/config"
	"ProposalLens/internal/domain"
	"ProposalLens/internal/infrastructure/llm"
	"ProposalLens/internal/infrastructure/scheduler"
	"ProposalLens/internal/infrastructure/snapshot"
	"ProposalLens/internal/infrastructure/telegram"
	"ProposalLens/internal/logging"
	"ProposalLens/internal/metrics"
	"ProposalLens/internal/ports"
	"ProposalLens/internal/thumbnail"
	"ProposalLens/internal/usecase"
	"ProposalLens/internal/view"
)

const fetchTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ports.Store
	pipeline *usecase.Pipeline
	cards    view.Builder
	notifier ports.Notifier
	registry *prometheus.Registry
}

// New builds an application over an already opened store. The caller owns
// the store and closes it.
func New(cfg config.Config, baseLogger *slog.Logger, store ports.Store) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	pipelineMetrics := metrics.NewPipeline(registry)

	source := snapshot.NewClient(
		cfg.Snapshot.Endpoint,
		cfg.Snapshot.Space,
		cfg.Snapshot.First,
		&http.Client{Timeout: fetchTimeout},
		baseLogger.With("component", "source.snapshot"),
	)

	var summarizer ports.Summarizer
	if cfg.ChatGPT.APIKey != "" {
		summarizer = llm.NewChatGPTClient(cfg.ChatGPT)
	} else {
		baseLogger.Warn("no OpenAI API key configured, summaries stay absent")
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	var cache ports.Cache
	if store != nil {
		cache = store
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Cache:      cache,
		Summarizer: summarizer,
		Metrics:    pipelineMetrics,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		cards:    view.NewBuilder(thumbnail.NewResolver(cfg.Images.Gateway, cfg.Images.Placeholder), cfg.Snapshot.Space, cfg.Snapshot.VoteBaseURL),
		notifier: notifier,
		registry: registry,
	}
}

// Activate starts one background run and returns its observable state.
func (a *Application) Activate(ctx context.Context) *usecase.State {
	return a.pipeline.Activate(ctx)
}

// Cards renders the current snapshot of st.
func (a *Application) Cards(st *usecase.State) []view.Card {
	return a.cards.Cards(st.Snapshot())
}

// RunOnce activates the pipeline, waits for it to stop and returns the cards.
// A degraded run returns its fetch error alongside an empty card list.
func (a *Application) RunOnce(ctx context.Context) ([]view.Card, error) {
	st := a.Activate(ctx)
	if err := st.Wait(ctx); err != nil {
		return a.Cards(st), err
	}

	a.publish(ctx, st)
	return a.Cards(st), st.Err()
}

// Watch re-activates the pipeline on the configured cron schedule until ctx
// ends. The metrics endpoint is served alongside when configured.
func (a *Application) Watch(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), true)
	sched := usecase.NewScheduler(driver, a.pipeline, a.publish)

	var srv *http.Server
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(a.registry))
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics endpoint listening", "addr", a.cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching proposals", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	// Triggered runs always complete; the caller closes the store afterwards.
	if err := sched.Stop(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// PurgeCache drops the cached proposal list, or the whole store with all.
func (a *Application) PurgeCache(ctx context.Context, all bool) error {
	if a.store == nil {
		return nil
	}
	if all {
		return a.store.Clear(ctx)
	}
	return a.store.Remove(ctx, domain.ProposalsKey)
}

func (a *Application) publish(ctx context.Context, st *usecase.State) {
	if a.notifier == nil || !st.Snapshot().SummariesReady {
		return
	}

	digest := view.Digest(a.Cards(st))
	if digest == "" {
		return
	}
	if err := a.notifier.PublishDigest(ctx, digest); err != nil {
		a.logger.Warn("publish digest failed", "error", err)
	}
}
