package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/born-ml/micro/internal/metrics"
	"github.com/born-ml/micro/session"
)

// Options configures the HTTP layer.
type Options struct {
	// CORSOrigins enables CORS for the listed origins. Empty disables CORS.
	CORSOrigins []string

	// MaxBodyBytes limits JSON request bodies. Zero selects 1 MiB.
	MaxBodyBytes int64

	// Logger receives one line per inference request. Nil disables it.
	Logger *zerolog.Logger

	// Metrics instruments every route. Nil disables instrumentation.
	Metrics *metrics.Collectors

	// Gatherer backs /metrics. Nil selects the default registry.
	Gatherer prometheus.Gatherer
}

const defaultMaxBodyBytes = 1 << 20

// NewMux builds the router for svc.
func NewMux(svc Service, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	h := &handlers{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(metricsMiddleware(opts.Metrics))
		r.Post("/v1/infer", h.infer)
		r.Get("/v1/model", h.model)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not initialized"))
	})

	if opts.Gatherer != nil {
		r.Get("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	} else {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	return r
}

type handlers struct {
	svc  Service
	opts Options
}

func (h *handlers) infer(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", 0)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	var req InferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body", 0)
		return
	}
	if len(req.Features) != session.FeatureCount {
		writeJSONError(w, http.StatusBadRequest, "features must hold exactly 13 values", session.StatusInvalidInputSize)
		return
	}

	start := time.Now()
	scores, err := h.svc.Infer(session.Features(req.Features))
	status := http.StatusOK
	if err != nil {
		status = httpStatus(err)
		writeJSONError(w, status, err.Error(), session.StatusCode(err))
	} else {
		w.Header().Set("Content-Type", "application/json")
		if encErr := json.NewEncoder(w).Encode(InferResponse{Scores: scores[:], Class: scores.ArgMax()}); encErr != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response", 0)
			return
		}
	}

	if h.opts.Logger != nil {
		z := h.opts.Logger.Info().Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("infer")
	}
}

func (h *handlers) model(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.svc.Model()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response", 0)
	}
}

// httpStatus maps session errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotInitialized), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrInvalidInputSize):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string, sessionStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Code: status, Status: sessionStatus})
}
