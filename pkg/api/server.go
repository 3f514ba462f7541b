package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ingresskit/ingresskit/pkg/config"
	"github.com/ingresskit/ingresskit/pkg/events"
	"github.com/ingresskit/ingresskit/pkg/keystore"
	"github.com/ingresskit/ingresskit/pkg/observability"
	"github.com/ingresskit/ingresskit/pkg/repair"
	"github.com/ingresskit/ingresskit/pkg/schema"
)

// Version is reported by the health endpoints.
const Version = "0.1.0"

const landingPage = `<!doctype html>
<html><head><title>IngressKit</title></head>
<body><h1>IngressKit</h1><p>Lightweight data ingress toolkit.</p></body></html>`

// Server wires the repair engine, event adapter, schema registry and
// keystore behind the HTTP surface.
type Server struct {
	cfg     *config.Config
	schemas *schema.Registry
	keys    keystore.Store
	obs     *observability.Provider
	logger  *slog.Logger
}

// NewServer assembles a server from its collaborators.
func NewServer(cfg *config.Config, reg *schema.Registry, keys keystore.Store, obs *observability.Provider) *Server {
	return &Server{
		cfg:     cfg,
		schemas: reg,
		keys:    keys,
		obs:     obs,
		logger:  slog.Default().With("component", "api"),
	}
}

// Handler builds the routed handler with request-ID and rate-limit middleware
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ping", s.handleHealth)
	mux.HandleFunc("/v1/ping", s.handleHealth)
	mux.HandleFunc("/v1/webhooks/ingest", s.handleWebhookIngest)
	mux.HandleFunc("/v1/json/normalize", s.handleJSONNormalize)
	mux.HandleFunc("/v1/schemas", s.handleSchemas)
	mux.HandleFunc("/v1/balance", s.handleBalance)
	mux.HandleFunc("/v1/admin/credits", s.handleAdminCredits)

	limiter := NewGlobalRateLimiter(s.cfg.RateRPS, s.cfg.RateBurst)
	return WithRequestID(limiter.Middleware(s.instrument(mux)))
}

// instrument records RED metrics per request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.obs.RecordRequest(r.Context(), r.URL.Path, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteNotFound(w, "No such endpoint")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(landingPage))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ingresskit",
		"version": Version,
	})
}

// requireCredit enforces metered mode: a bearer key must be present, and keys
// known to the store must carry a positive balance. Unknown keys pass through
// as the free tier. Returns false after writing the error response.
func (s *Server) requireCredit(w http.ResponseWriter, r *http.Request) bool {
	if !s.cfg.Metered {
		return true
	}
	key := bearerKey(r)
	if key == "" {
		WriteUnauthorized(w, "")
		return false
	}

	ctx := r.Context()
	known, err := s.keys.Exists(ctx, key)
	if err != nil {
		WriteInternal(w, err)
		return false
	}
	if !known {
		return true // free tier placeholder
	}
	if _, err := s.keys.Charge(ctx, key, 1); err != nil {
		if errors.Is(err, keystore.ErrOutOfCredits) {
			WritePaymentRequired(w)
			return false
		}
		WriteInternal(w, err)
		return false
	}
	return true
}

func (s *Server) handleWebhookIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}
	if !s.requireCredit(w, r) {
		return
	}

	source := r.URL.Query().Get("source")
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		WriteBadRequest(w, "Invalid JSON")
		return
	}

	ev, err := events.Normalize(source, payload)
	if err != nil {
		WriteBadRequest(w, "Unsupported source")
		return
	}
	if s.cfg.ValidateEvents {
		if err := events.Validate(ev); err != nil {
			WriteInternal(w, err)
			return
		}
	}

	s.obs.RecordEvent(r.Context(), source)
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleJSONNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}
	if !s.requireCredit(w, r) {
		return
	}

	sch, err := s.schemas.Get(r.URL.Query().Get("schema"))
	if err != nil {
		WriteBadRequest(w, "Unsupported schema")
		return
	}

	keys, values, err := repair.DecodeObject(r.Body)
	if err != nil {
		WriteBadRequest(w, "Invalid JSON")
		return
	}

	record, trace := repair.RepairObject(sch, keys, values)
	s.obs.RecordRows(r.Context(), sch.Name, 1)

	out := make(map[string]any, len(record)+1)
	for field, val := range record {
		if val != nil {
			out[field] = *val
		} else {
			out[field] = nil
		}
	}
	out["trace"] = trace
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schemas":         s.schemas.Describe(),
		"canonical_event": events.SchemaJSON(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	key := bearerKey(r)
	if key == "" {
		WriteUnauthorized(w, "")
		return
	}
	balance, err := s.keys.Get(r.Context(), key)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"api_key": key, "balance": balance})
}

func (s *Server) handleAdminCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}
	if s.cfg.AdminToken == "" || bearerKey(r) != s.cfg.AdminToken {
		WriteForbidden(w, "")
		return
	}

	var req struct {
		APIKey string `json:"api_key"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIKey == "" {
		WriteBadRequest(w, "Invalid JSON")
		return
	}
	balance, err := s.keys.Add(r.Context(), req.APIKey, req.Amount)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "credits granted", "amount", req.Amount)
	writeJSON(w, http.StatusOK, map[string]any{"api_key": req.APIKey, "balance": balance})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
