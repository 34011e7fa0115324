package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goVerify/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HealthCheck reports whether one backend is reachable.
type HealthCheck func(ctx context.Context) error

// Deps holds what the router needs. Engine is required.
type Deps struct {
	Engine Engine
	Logger logrus.FieldLogger
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	Health  map[string]HealthCheck

	AllowedOrigins []string
	TrustProxy     bool
	// RatePerSecond and Burst bound the sensitive public routes per client
	// IP. RatePerSecond <= 0 disables the limiter.
	RatePerSecond float64
	Burst         int

	// DefaultCountryCode ("86", "+44") is prefixed to national phone numbers
	// sent without one. Empty means identifiers must already be E.164.
	DefaultCountryCode string

	Now func() time.Time
}

// NewRouter builds the API router.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handler{
		engine:      deps.Engine,
		log:         log,
		now:         now,
		countryCode: strings.TrimPrefix(strings.TrimSpace(deps.DefaultCountryCode), "+"),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.ClientInfo(deps.TrustProxy))

	sensitive := func(next http.Handler) http.Handler { return next }
	if deps.RatePerSecond > 0 {
		burst := deps.Burst
		if burst <= 0 {
			burst = 1
		}
		sensitive = newIPRateLimiter(rate.Limit(deps.RatePerSecond), burst).limit
	}

	r.Get("/healthz", healthz(deps.Health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(sensitive).Post("/send-verify-code", h.sendVerifyCode)
		r.With(sensitive).Post("/register", h.register)
		r.With(sensitive).Post("/login", h.login)
		r.With(sensitive).Post("/forget", h.forget)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(deps.Engine))

			r.Get("/logout", h.logout)
			r.Post("/logout", h.logout)
			r.Get("/me", h.me)
			r.With(sensitive).Post("/change-identifier", h.changeIdentifier)
		})
	})

	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			writeJSON(w, http.StatusServiceUnavailable, envelope{Code: "unhealthy", Data: status})
			return
		}
		writeOK(w, "", status)
	}
}

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			id, _ := r.Context().Value(requestIDKey{}).(string)
			entry := log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": id,
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("request failed")
				return
			}
			entry.Debug("request served")
		})
	}
}
