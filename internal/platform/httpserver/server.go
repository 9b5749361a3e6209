package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	checkout "seamless/contexts/payment-core/checkout"
	eventtracking "seamless/contexts/payment-core/event-tracking"
	trackinghttp "seamless/contexts/payment-core/event-tracking/transport/http"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	moduleName     = "internal/platform/httpserver"
	requestTimeout = 60 * time.Second
	maxBodyBytes   = 1 << 20
)

type Server struct {
	mux      *http.ServeMux
	handler  http.Handler
	logger   *slog.Logger
	addr     string
	tracking eventtracking.Module
	checkout checkout.Module
	server   *http.Server
}

func New(
	tracking eventtracking.Module,
	checkoutModule checkout.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		tracking: tracking,
		checkout: checkoutModule,
	}
	s.registerRoutes()
	s.handler = middleware.RequestID(
		middleware.RealIP(
			s.logRequests(
				middleware.Recoverer(
					middleware.Timeout(requestTimeout)(s.mux),
				),
			),
		),
	)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", moduleName,
		"layer", "platform",
		"addr", s.addr,
	)
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", moduleName,
		"layer", "platform",
	)
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /v1/transactions/{transaction_id}", s.handleGetTransaction)
	s.mux.HandleFunc("GET /v1/transactions/{transaction_id}/events", s.handleListTransactionEvents)
	s.mux.HandleFunc("GET /v1/customers/{customer_id}/transactions", s.handleCustomerTransactions)
	s.mux.HandleFunc("GET /v1/resources/{processor}/{resource_id}/records", s.handleResourceRecords)

	s.mux.HandleFunc("POST /v1/checkout/paypal", s.handleStartPayPal)
	s.mux.HandleFunc("POST /v1/checkout/paypal/{transaction_id}/capture", s.handleCapturePayPal)
	s.mux.HandleFunc("POST /v1/checkout/stripe", s.handleStartStripe)
	s.mux.HandleFunc("POST /v1/checkout/stripe/{transaction_id}/capture", s.handleCaptureStripe)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"tracking": s.tracking.Tracker != nil && s.tracking.Tracker.Enabled(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request served",
			"event", "http_request_served",
			"module", moduleName,
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, trackinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
