// Package proxy serves the 0x quote endpoint for browser front-ends that
// must not see the API key.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/Mohsinsiddi/dustvault/internal/quote"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"
)

const (
	quotePath    = "/swap/v1/quote"
	maxBodyBytes = 4 << 20
	pruneEvery   = time.Minute
	idleLimiter  = 10 * time.Minute
)

// Error bodies returned by the quote route.
const (
	MsgMissingKey   = "Missing 0x API Key"
	MsgFetchFailed  = "Failed to fetch 0x quote"
	upstreamTimeout = 15 * time.Second
)

// Options configures a Server.
type Options struct {
	Listen         string
	UpstreamURL    string // defaults to quote.DefaultZeroExURL
	APIKey         string
	RatePerSecond  float64
	Burst          int
	AllowedOrigins []string
	Client         *http.Client
	Log            *slog.Logger
}

// FromConfig builds Options from the proxy section of cfg.
func FromConfig(cfg *config.Config, log *slog.Logger) Options {
	return Options{
		Listen:         cfg.Proxy.Listen,
		UpstreamURL:    cfg.Proxy.UpstreamURL,
		APIKey:         cfg.GetProviderKey("zeroex"),
		RatePerSecond:  cfg.Proxy.RatePerSecond,
		Burst:          cfg.Proxy.Burst,
		AllowedOrigins: cfg.Proxy.AllowedOrigins,
		Log:            log,
	}
}

// Server is the quote proxy.
type Server struct {
	opts    Options
	client  *http.Client
	limiter *RateLimiter
	log     *slog.Logger
	handler http.Handler
}

// New builds the router. Nothing listens until Run.
func New(opts Options) *Server {
	if opts.UpstreamURL == "" {
		opts.UpstreamURL = quote.DefaultZeroExURL
	}
	opts.UpstreamURL = strings.TrimRight(opts.UpstreamURL, "/")
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: upstreamTimeout}
	}
	s := &Server{
		opts:    opts,
		client:  client,
		limiter: NewRateLimiter(opts.RatePerSecond, opts.Burst),
		log:     logging.Or(opts.Log).With("component", "proxy"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(accessLog(s.log))
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Get("/0x/quote", s.handleQuote)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on opts.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("proxy listening", "addr", s.opts.Listen, "upstream", s.opts.UpstreamURL)
		errCh <- srv.ListenAndServe()
	}()

	tick := time.NewTicker(pruneEvery)
	defer tick.Stop()
	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("proxy listen: %w", err)
		case <-tick.C:
			if n := s.limiter.Prune(idleLimiter); n > 0 {
				s.log.Debug("pruned idle limiters", "count", n)
			}
		case <-ctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.log.Info("proxy shutting down")
			if err := srv.Shutdown(shutCtx); err != nil {
				return fmt.Errorf("proxy shutdown: %w", err)
			}
			return nil
		}
	}
}

// handleQuote forwards the raw query string upstream with the server-held
// key and relays the upstream status and JSON body as-is.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.opts.APIKey == "" {
		writeError(w, http.StatusInternalServerError, MsgMissingKey)
		return
	}

	url := s.opts.UpstreamURL + quotePath
	if q := r.URL.RawQuery; q != "" {
		url += "?" + q
	}
	status, body, err := s.fetch(r.Context(), url)
	if err != nil {
		UpstreamFailures.Inc()
		s.log.Warn("quote upstream failed", "id", RequestID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, MsgFetchFailed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck
}

func (s *Server) fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("0x-api-key", s.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return 0, nil, fmt.Errorf("non-JSON body (HTTP %d)", resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
