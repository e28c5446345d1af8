// Package app wires Kanri's components and runs them.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/bdobrica/Kanri/common/redact"
	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/audit"
	"github.com/bdobrica/Kanri/internal/kanri/commands"
	"github.com/bdobrica/Kanri/internal/kanri/discord"
	"github.com/bdobrica/Kanri/internal/kanri/matrix"
	"github.com/bdobrica/Kanri/internal/kanri/metrics"
	"github.com/bdobrica/Kanri/internal/kanri/nlp"
	"github.com/bdobrica/Kanri/internal/kanri/pipeline"
	"github.com/bdobrica/Kanri/internal/kanri/store"
)

// sweepInterval is how often expired confirmations are retired and the
// pending gauge refreshed.
const sweepInterval = 15 * time.Second

// App is the running bot.
type App struct {
	config   Config
	logger   *slog.Logger
	store    *store.Store
	discord  *discord.Client
	matrix   *matrix.Client
	gate     *approvals.Gate
	pipeline *pipeline.Orchestrator
	router   *commands.Router
	handlers *commands.Handlers
	metrics  *metrics.Metrics
	health   *HealthServer
}

// NewProvider builds the model provider named by cfg.ModelProvider.
func NewProvider(cfg Config) nlp.Provider {
	if cfg.ModelProvider == ProviderOpenAI {
		return nlp.NewOpenAI(nlp.OpenAIConfig{
			APIKey:    cfg.ModelToken,
			BaseURL:   cfg.ModelEndpoint,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxNewTokens,
		})
	}
	return nlp.NewHuggingFace(nlp.HFConfig{
		Token:        cfg.ModelToken,
		BaseURL:      cfg.ModelEndpoint,
		Model:        cfg.Model,
		MaxNewTokens: cfg.MaxNewTokens,
		Temperature:  cfg.Temperature,
	})
}

// New validates config and builds every component. Nothing touches the
// network until Run.
func New(config Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	logger := config.Logger
	logger.Info("configuration loaded", "config", config)

	logger.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	dc, err := discord.New(discord.Config{
		Token:          config.DiscordToken,
		CommandGuildID: config.CommandGuildID,
		Logger:         logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Discord client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(reg)

	var notifiers audit.Multi
	if config.AuditChannelID != "" {
		notifiers = append(notifiers, audit.NewRoomNotifier("discord", dc, config.AuditChannelID))
	}
	var mc *matrix.Client
	if config.MatrixRoomID != "" {
		logger.Info("Matrix audit notices enabled", "matrix", config.Matrix, "room", config.MatrixRoomID)
		mc, err = matrix.New(config.Matrix)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
		}
		notifiers = append(notifiers, audit.NewRoomNotifier("matrix", mc, config.MatrixRoomID))
	}

	gate := approvals.NewGate(approvals.NewStore(0, config.ConfirmTTL, nil), config.ConfirmTTL, nil)

	orch, err := pipeline.New(pipeline.Config{
		Provider: NewProvider(config),
		Parser:   nlp.Parser{Repair: config.RepairJSON},
		Gate:     gate,
		Executor: actions.NewExecutor(logger),
		Guilds:   dc.Directory(),
		Limiter:  nlp.NewRateLimiter(config.RateLimit, time.Minute),
		Audit:    st,
		Notifier: notifiers,
		Metrics:  m,
		Redactor: redact.New(config.DiscordToken, config.ModelToken, config.Matrix.AccessToken),
		Logger:   logger,
		Timeout:  config.InferenceTimeout,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	router := commands.NewRouter()
	handlers := commands.NewHandlers(orch, st, dc.Latency)
	handlers.Register(router)

	a := &App{
		config:   config,
		logger:   logger,
		store:    st,
		discord:  dc,
		matrix:   mc,
		gate:     gate,
		pipeline: orch,
		router:   router,
		handlers: handlers,
		metrics:  m,
	}
	if config.HTTPAddr != "off" {
		a.health = NewHealthServer(config.HTTPAddr, HealthOptions{
			Bot:      dc,
			DB:       st,
			Pending:  gate.Outstanding,
			Gatherer: reg,
		})
	}
	return a, nil
}

// Run serves until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.health != nil {
		g.Go(func() error { return a.health.Serve(ctx) })
	}
	if a.matrix != nil {
		g.Go(func() error {
			if err := a.matrix.Join(ctx, a.config.MatrixRoomID); err != nil {
				a.logger.Warn("could not join Matrix audit room; notices may fail", "room", a.config.MatrixRoomID, "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		a.sweep(ctx)
		return nil
	})
	g.Go(func() error {
		return a.discord.Run(ctx, discord.Routes{
			Commands:  a.router,
			Decisions: a.handlers.HandleDecision,
			Expire:    a.pipeline.Expire,
		})
	})

	a.logger.Info("Kanri is running; press Ctrl+C to stop")
	err := g.Wait()
	a.logger.Info("shutting down")
	return err
}

// sweep retires expired confirmations whose buttons never fired, for
// example after a message was deleted.
func (a *App) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.metrics.SetPending(a.gate.Outstanding())
		}
	}
}

// Close releases the database.
func (a *App) Close() error {
	a.logger.Info("closing database")
	return a.store.Close()
}
