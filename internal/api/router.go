package api

import (
	"encoding/json"
	"net/http"

	"duosiege/internal/credential"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability.
type RouterConfig struct {
	// Creds is the account/session store used for registration, login,
	// and WebSocket bearer-token verification (required).
	Creds *credential.Store

	// Gateway upgrades authenticated requests to WebSocket sessions
	// (required).
	Gateway *WebSocketGateway

	// RateLimiter is an optional pre-configured rate limiter. If nil, a
	// new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig configures the rate limiter when RateLimiter is
	// nil. If both are nil, DefaultRateLimitConfig is used.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks and tests).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It opens no listeners, so it is safe to use with httptest.NewServer.
// When cfg.RateLimiter is nil, the rate limiter it creates starts its own
// cleanup goroutine.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", handleRegister(cfg.Creds))
		r.Post("/login", handleLogin(cfg.Creds))
	})

	r.Get("/ws", cfg.Gateway.ServeHTTP)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func handleRegister(creds *credential.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p credentialsPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if _, err := creds.Register(p.Username, p.Password); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func handleLogin(creds *credential.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p credentialsPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		token, err := creds.Login(p.Username, p.Password)
		if err != nil {
			RecordConnectionRejected("auth")
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}
