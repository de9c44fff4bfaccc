package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"sinkbot/internal/bus"
	"sinkbot/internal/metrics"
)

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Port        int
	WebhookPath string // default: /callback
	ContentDir  string // served under /downloaded/
	StaticDir   string // served under /static/
	Metrics     bool
	MetricsPath string // default: /metrics
	Logger      *slog.Logger
}

// Server terminates the LINE webhook and serves the bot's static and
// downloaded content. Signature verification happens during parsing;
// events are acknowledged immediately and handled asynchronously via
// the bus.
type Server struct {
	port        int
	webhookPath string
	contentDir  string
	staticDir   string
	metricsOn   bool
	metricsPath string
	secret      string
	bus         *bus.InMemoryBus
	logger      *slog.Logger
	server      *http.Server
}

func NewServer(cfg ServerConfig, line *Line, b *bus.InMemoryBus) *Server {
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/callback"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Server{
		port:        cfg.Port,
		webhookPath: cfg.WebhookPath,
		contentDir:  cfg.ContentDir,
		staticDir:   cfg.StaticDir,
		metricsOn:   cfg.Metrics,
		metricsPath: cfg.MetricsPath,
		secret:      line.secret,
		bus:         b,
		logger:      cfg.Logger,
	}
}

// Start runs the server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.webhookPath, s.handleCallback)
	if s.contentDir != "" {
		mux.Handle("/downloaded/", http.StripPrefix("/downloaded/", http.FileServer(http.Dir(s.contentDir))))
	}
	if s.staticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	}
	if s.metricsOn {
		mux.HandleFunc(s.metricsPath, metrics.Collector.Handler())
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting", "port", s.port, "path", s.webhookPath)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// handleCallback verifies and parses the webhook call, publishes every
// event to the bus, and acknowledges with 200 before any event is
// handled.
func (s *Server) handleCallback(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	cb, err := webhook.ParseRequest(s.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			s.logger.Warn("webhook signature verification failed")
			http.Error(rw, "Bad Request", http.StatusBadRequest)
			return
		}
		s.logger.Error("webhook parse failed", "err", err)
		http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("webhook received", "events", len(cb.Events))

	for _, ev := range cb.Events {
		domainEv, ok := toDomainEvent(ev)
		if !ok {
			s.logger.Debug("event kind skipped", "type", fmt.Sprintf("%T", ev))
			continue
		}
		s.bus.Publish(domainEv)
	}

	rw.WriteHeader(http.StatusOK)
}
