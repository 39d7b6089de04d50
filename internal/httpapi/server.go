package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/achimid/web-page-notify-api/internal/model"
	"github.com/achimid/web-page-notify-api/internal/watch"
)

type Config struct {
	Enabled      bool
	Addr         string // default: "127.0.0.1:8080"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes the one-off execution endpoint and the websocket
// subscribe endpoint. One-off executions run a single runner cycle and
// return the raw result; they bypass policy and fan-out.
type Server struct {
	mu sync.Mutex

	log    *slog.Logger
	cfg    Config
	runner *watch.Runner
	ws     http.Handler

	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, runner *watch.Runner, ws http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, cfg: cfg, runner: runner, ws: ws}
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v1/execute", s.handleExecute)
	if s.ws != nil {
		mux.Handle("/ws", s.ws)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func(srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", slog.Any("err", err))
		}
	}(s.srv, ln)

	s.log.Info("http api started", slog.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown", slog.Any("err", err))
	}
}

type executeRequest struct {
	URL      string `json:"url"`
	Selector string `json:"selector,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	switch r.Method {
	case http.MethodGet:
		req.URL = r.URL.Query().Get("url")
		req.Selector = r.URL.Query().Get("selector")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid body")
			return
		}
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		httpError(w, http.StatusBadRequest, "url is required")
		return
	}

	task := model.WatchTask{
		URL:      req.URL,
		Selector: req.Selector,
	}
	res := s.runner.Run(r.Context(), &task)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
