package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dizzycode.xyz/trading-engine/internal/domain/strategy"
	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// StateView 唯讀的引擎狀態
type StateView interface {
	Pairs() map[string]vo.Pair
	Balance() float64
	Markers() map[string]map[string]strategy.TrailingMarker
	TradeHistory() []vo.TradeRecord
}

// Server 狀態查詢與監控端點
type Server struct {
	srv    *http.Server
	logger logger.Logger
}

// New 創建 HTTP 服務，metrics 為 nil 時不掛載 /metrics
func New(addr string, view StateView, metrics http.Handler, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(view, metrics, log),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

// NewRouter 建立路由
func NewRouter(view StateView, metrics http.Handler, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/pairs", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, view.Pairs())
		})
		r.Get("/pairs/{symbol}", func(w http.ResponseWriter, req *http.Request) {
			symbol := chi.URLParam(req, "symbol")
			p, ok := view.Pairs()[symbol]
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown symbol"})
				return
			}
			writeJSON(w, http.StatusOK, p)
		})
		r.Get("/balance", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]float64{"balance": view.Balance()})
		})
		r.Get("/markers", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, view.Markers())
		})
		r.Get("/trades", func(w http.ResponseWriter, _ *http.Request) {
			trades := view.TradeHistory()
			if trades == nil {
				trades = []vo.TradeRecord{}
			}
			writeJSON(w, http.StatusOK, trades)
		})
	})

	return r
}

// Start 背景啟動
func (s *Server) Start() {
	go func() {
		s.logger.Info("HTTP server listening", map[string]any{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", map[string]any{"error": err})
		}
	}()
}

// Shutdown 優雅關閉
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("HTTP request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
