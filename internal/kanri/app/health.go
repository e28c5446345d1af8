package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bdobrica/Kanri/common/version"
)

// BotStatus reports the state of the chat session. *discord.Client
// implements it.
type BotStatus interface {
	BotUser() string
	GuildCount() int
	Latency() time.Duration
}

// pinger is satisfied by *store.Store.
type pinger interface {
	Ping() error
}

// HealthServer serves liveness and status pages plus Prometheus metrics.
type HealthServer struct {
	addr      string
	bot       BotStatus
	db        pinger
	pending   func() int
	startedAt time.Time
	router    *chi.Mux
}

// HealthOptions carries the optional collaborators of a HealthServer.
type HealthOptions struct {
	Bot      BotStatus
	DB       pinger
	Pending  func() int
	Gatherer prometheus.Gatherer
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Database string `json:"database,omitempty"`
}

type statusResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Commit     string    `json:"commit"`
	BuildTime  string    `json:"build_time"`
	StartedAt  time.Time `json:"started_at"`
	UptimeSecs float64   `json:"uptime_seconds"`
	BotUser    string    `json:"bot_user"`
	Guilds     int       `json:"guilds"`
	LatencyMS  int64     `json:"latency_ms"`
	Pending    int       `json:"pending_confirmations"`
}

// NewHealthServer builds the router. Nothing listens until Serve.
func NewHealthServer(addr string, opts HealthOptions) *HealthServer {
	r := chi.NewRouter()
	hs := &HealthServer{
		addr:      addr,
		bot:       opts.Bot,
		db:        opts.DB,
		pending:   opts.Pending,
		startedAt: time.Now(),
		router:    r,
	}

	r.Use(middleware.Recoverer)
	r.Get("/", hs.handleHome)
	r.Get("/health", hs.handleHealth)
	r.Get("/status", hs.handleStatus)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return hs
}

// ServeHTTP lets tests drive the router with httptest.
func (h *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Serve listens on the configured address until ctx is cancelled.
func (h *HealthServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("health server: listen %s: %w", h.addr, err)
	}

	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("health server shutdown error", "err", err)
		}
	}()

	slog.Info("health server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (h *HealthServer) botState() (user string, guilds int, latency time.Duration) {
	if h.bot == nil {
		return "", 0, 0
	}
	return h.bot.BotUser(), h.bot.GuildCount(), h.bot.Latency()
}

// handleHome is the uptime-monitor page.
func (h *HealthServer) handleHome(w http.ResponseWriter, _ *http.Request) {
	user, guilds, latency := h.botState()
	if user == "" {
		user = "(connecting)"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Kanri - Status: Online\nBot User: %s\nConnected Guilds: %d\nLatency: %.2fms\n",
		user, guilds, float64(latency.Microseconds())/1000)
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	}
	code := http.StatusOK
	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.Ping(); err != nil {
			slog.Warn("health: database ping failed", "err", err)
			resp.Status, resp.Database = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func (h *HealthServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	user, guilds, latency := h.botState()
	pending := 0
	if h.pending != nil {
		pending = h.pending()
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     "ok",
		Version:    version.Version,
		Commit:     version.GitCommit,
		BuildTime:  version.BuildTime,
		StartedAt:  h.startedAt,
		UptimeSecs: time.Since(h.startedAt).Seconds(),
		BotUser:    user,
		Guilds:     guilds,
		LatencyMS:  latency.Milliseconds(),
		Pending:    pending,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("health: failed to encode JSON response", "err", err)
	}
}
