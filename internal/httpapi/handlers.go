package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"graintrade.org/internal/auth"
	"graintrade.org/internal/notify"
	"graintrade.org/internal/obs"
	"graintrade.org/internal/users"
)

// Pinger is any dependency the readiness probe can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe: простая проверка готовности (ping БД и брокера).
type ReadyProbe struct {
	DB    *sql.DB
	Redis Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// API: HTTP слой.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	appName    string

	service  *auth.Service
	authz    *auth.Authorizer
	users    users.Repository
	notifier notify.Notifier
	logger   *logrus.Entry

	rateBurst  int
	ratePerSec rate.Limit
	proxies    []netip.Prefix
}

// Option configures API.
type Option func(*API)

// WithAuth sets the login service and the bearer token authorizer.
func WithAuth(svc *auth.Service, authz *auth.Authorizer) Option {
	return func(a *API) {
		a.service = svc
		a.authz = authz
	}
}

func WithUsers(repo users.Repository) Option {
	return func(a *API) { a.users = repo }
}

func WithNotifier(n notify.Notifier) Option {
	return func(a *API) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithLoginRateLimit sets the per-client token bucket for POST /token.
func WithLoginRateLimit(burst int, perSecond rate.Limit) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

// WithTrustedProxies names the peers whose X-Forwarded-For is believed.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) { a.proxies = prefixes }
}

func WithAppName(name string) Option {
	return func(a *API) {
		if name != "" {
			a.appName = name
		}
	}
}

func New(rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		appName:    "graintrade-auth",
		notifier:   notify.Nop{},
		logger:     obs.Logger().WithField("component", "httpapi"),
		rateBurst:  10,
		ratePerSec: 1,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.Handle("POST /token", RateLimit(http.HandlerFunc(a.handleToken), a.rateBurst, a.ratePerSec, a.proxies...))

	me := auth.RequireScopes(auth.ScopeMe)
	a.mux.HandleFunc("GET /users/me", a.require(me, a.handleMe))
	a.mux.HandleFunc("POST /users", a.handleCreateUser)
	a.mux.HandleFunc("GET /users", a.optional(auth.RequireScopes(), a.handleListUsers))
	a.mux.HandleFunc("GET /users/{id}", a.optional(auth.RequireScopes(), a.handleGetUser))
	a.mux.HandleFunc("PUT /users/{id}", a.require(me, a.handleUpdateUser))
	a.mux.HandleFunc("DELETE /users/{id}", a.require(me, a.handleDeleteUser))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not Found")
	})

	return a
}

// Handler возвращает http.Handler для сервера со всеми middleware.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": a.appName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    a.appName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
