package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"kasirbutik/backend/internal/logger"
	"kasirbutik/backend/internal/metrics"
	"kasirbutik/backend/internal/service"
	"kasirbutik/backend/internal/store"
)

type Options struct {
	AllowedOrigin  string
	Production     bool
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	RateLimitRPS   float64
	RateLimitBurst int
	// ConfigCheck reports which integration settings are present.
	ConfigCheck map[string]bool
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	production    bool
	log           *zap.Logger
	metrics       *metrics.Metrics
	limiter       *rateLimiter
	loginLimiter  *rateLimiter
	configCheck   map[string]bool
	now           func() time.Time
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origin := opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: origin,
		production:    opts.Production,
		log:           log,
		metrics:       opts.Metrics,
		limiter:       newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		loginLimiter:  newRateLimiter(float64(rate.Every(12*time.Second)), 5),
		configCheck:   opts.ConfigCheck,
		now:           time.Now,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api", a.handleIndex)
	mux.HandleFunc("/api/health", a.handleHealth)
	mux.HandleFunc("/api/auth/login", a.handleLogin)
	mux.HandleFunc("/api/config/check", a.requireAuth(a.handleConfigCheck, RoleAdmin))

	mux.HandleFunc("/api/products", a.requireAuth(a.handleProducts, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/products/", a.requireAuth(a.handleProductActions, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/transactions", a.requireAuth(a.handleTransactions, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/debts", a.requireAuth(a.handleDebts, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/debts/", a.requireAuth(a.handleDebtActions, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/dashboard/stats", a.requireAuth(a.handleDashboardStats, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/dashboard/profit-chart", a.requireAuth(a.handleProfitChart, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/sales/", a.requireAuth(a.handleSales, RoleCashier, RoleAdmin))
	mux.HandleFunc("/api/reports/pdf", a.requireAuth(a.handleReportPDF, RoleAdmin))
	mux.HandleFunc("/api/reports/excel", a.requireAuth(a.handleReportExcel, RoleAdmin))

	mux.Handle("/metrics", a.metrics.Handler())

	return a.withMiddleware(mux)
}

// requireAuth checks the bearer token when authentication is enabled.
// With auth disabled every request is let through without an actor.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.auth.Enabled() {
			next(w, r)
			return
		}

		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, r, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, r, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx, a.log).With(zap.String("actor", actor.Username)))
		next(w, r.WithContext(ctx))
	}
}

// allowRole narrows a route that mixes cashier reads with admin writes.
func (a *API) allowRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	if !a.auth.Enabled() {
		return true
	}
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || !isRoleAllowed(actor.Role, roles) {
		a.writeError(w, r, http.StatusForbidden, errors.New("forbidden role"))
		return false
	}
	return true
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrUnsupportedMedia):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	a.writeError(w, r, statusFor(err), err)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// writeError answers with the failure envelope. 5xx details are logged;
// production bodies stay generic, other environments add the stack of
// upstream failures.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := map[string]any{
		"success": false,
		"error":   err.Error(),
	}
	if status >= 500 {
		logger.FromContext(r.Context(), a.log).Error("request failed", zap.Int("status", status), zap.Error(err))
		if a.production {
			body["error"] = "internal server error"
		} else {
			var st stackTracer
			if errors.As(err, &st) {
				body["stack"] = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
			}
		}
	}
	writeJSON(w, status, body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeNotFound(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, http.StatusNotFound, errors.New("route not found"))
}

// decodeJSON caps the body at maxJSONBody whatever its declared type.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// decodeOptionalJSON accepts an empty body and leaves dest untouched.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if err := decodeJSON(w, r, dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathParts splits the path below prefix into its segments.
func pathParts(path string, prefix string) []string {
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if tail == "" {
		return nil
	}
	return strings.Split(tail, "/")
}
