// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/okian/kam/pkg/logger"
)

// Dependencies required by HTTP handlers. Each handler only sees the slice
// it needs; the application service implements all of them.
type Dependencies interface {
	AuthService
	ImportService
	RecordService
	ActivityService
	AccountService
	AnalyticsService
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	verifier Verifier
	logger   logger.Logger

	allowedOrigins []string
	loginLimit     *RateLimiter
	importLimit    *RateLimiter
	feed           http.Handler

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	authHandler      *AuthHandler
	importHandler    *ImportHandler
	recordsHandler   *RecordsHandler
	activityHandler  *ActivityHandler
	accountsHandler  *AccountsHandler
	analyticsHandler *AnalyticsHandler
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger         logger.Logger
	allowedOrigins []string
	maxUpload      int64
	loginRPS       float64
	loginBurst     int
	importRPS      float64
	importBurst    int
	feed           http.Handler
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAllowedOrigins sets the browser origins accepted by CORS.
func WithAllowedOrigins(origins []string) Option {
	return func(c *serverConfig) { c.allowedOrigins = origins }
}

// WithMaxUploadBytes bounds import request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUpload = n
		}
	}
}

// WithLoginLimit sets the per-client login rate.
func WithLoginLimit(rps float64, burst int) Option {
	return func(c *serverConfig) {
		if rps > 0 {
			c.loginRPS, c.loginBurst = rps, burst
		}
	}
}

// WithImportLimit sets the per-client import rate.
func WithImportLimit(rps float64, burst int) Option {
	return func(c *serverConfig) {
		if rps > 0 {
			c.importRPS, c.importBurst = rps, burst
		}
	}
}

// WithChangeFeed mounts the websocket change feed at /api/ws.
func WithChangeFeed(h http.Handler) Option {
	return func(c *serverConfig) { c.feed = h }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, verifier Verifier, opts ...Option) *Server {
	cfg := serverConfig{
		logger:      logger.Nop(),
		maxUpload:   10 << 20,
		loginRPS:    1,
		loginBurst:  5,
		importRPS:   2,
		importBurst: 4,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := cfg.logger
	return &Server{
		verifier:         verifier,
		logger:           l,
		allowedOrigins:   cfg.allowedOrigins,
		loginLimit:       NewRateLimiter(cfg.loginRPS, cfg.loginBurst),
		importLimit:      NewRateLimiter(cfg.importRPS, cfg.importBurst),
		feed:             cfg.feed,
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		authHandler:      NewAuthHandler(deps, l),
		importHandler:    NewImportHandler(deps, cfg.maxUpload, l),
		recordsHandler:   NewRecordsHandler(deps, l),
		activityHandler:  NewActivityHandler(deps, l),
		accountsHandler:  NewAccountsHandler(deps, l),
		analyticsHandler: NewAnalyticsHandler(deps, l),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	authed := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return Instrument(endpoint, RequireAuth(s.verifier, s.logger, h))
	}

	mux.HandleFunc("GET /healthz", Instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("GET /stats", Instrument("stats", s.statsHandler.HandleStats))

	mux.HandleFunc("POST /api/auth/login", Instrument("login", s.loginLimit.Limit(s.logger, s.authHandler.HandleLogin)))
	mux.HandleFunc("GET /api/me", authed(s.authHandler.HandleMe, "me"))

	mux.HandleFunc("POST /api/imports", authed(s.importLimit.Limit(s.logger, s.importHandler.HandlePreview), "imports"))
	mux.HandleFunc("POST /api/imports/{id}/confirm", authed(s.importHandler.HandleConfirm, "imports_confirm"))

	mux.HandleFunc("GET /api/records", authed(s.recordsHandler.HandleList, "records"))
	mux.HandleFunc("GET /api/records/{userID}", authed(s.recordsHandler.HandleProfile, "record"))
	mux.HandleFunc("GET /api/pocs", authed(s.recordsHandler.HandlePOCs, "pocs"))

	mux.HandleFunc("GET /api/calls", authed(s.activityHandler.HandleListCalls, "calls"))
	mux.HandleFunc("PUT /api/calls", authed(s.activityHandler.HandleSaveCall, "calls"))
	mux.HandleFunc("GET /api/queries", authed(s.activityHandler.HandleListQueries, "queries"))
	mux.HandleFunc("POST /api/queries", authed(s.activityHandler.HandleSaveQuery, "queries"))
	mux.HandleFunc("PATCH /api/queries/{id}", authed(s.activityHandler.HandleQueryStatus, "query"))
	mux.HandleFunc("GET /api/retailer-tags", authed(s.activityHandler.HandleListRetailerTags, "retailer_tags"))
	mux.HandleFunc("PUT /api/retailer-tags", authed(s.activityHandler.HandleSaveRetailerTag, "retailer_tags"))
	mux.HandleFunc("GET /api/retailers", authed(s.activityHandler.HandleRetailers, "retailers"))
	mux.HandleFunc("GET /api/complaint-tags", authed(s.activityHandler.HandleListComplaintTags, "complaint_tags"))
	mux.HandleFunc("POST /api/complaint-tags", authed(s.activityHandler.HandleAddComplaintTag, "complaint_tags"))
	mux.HandleFunc("PUT /api/complaint-tags/{name}", authed(s.activityHandler.HandleRenameComplaintTag, "complaint_tag"))
	mux.HandleFunc("DELETE /api/complaint-tags/{name}", authed(s.activityHandler.HandleDeleteComplaintTag, "complaint_tag"))

	mux.HandleFunc("GET /api/accounts", authed(s.accountsHandler.HandleList, "accounts"))
	mux.HandleFunc("POST /api/accounts", authed(s.accountsHandler.HandleCreate, "accounts"))
	mux.HandleFunc("DELETE /api/accounts/{id}", authed(s.accountsHandler.HandleDelete, "account"))

	mux.HandleFunc("GET /api/analytics/dashboard", authed(s.analyticsHandler.HandleDashboard, "analytics_dashboard"))
	mux.HandleFunc("GET /api/analytics/complaints", authed(s.analyticsHandler.HandleComplaints, "analytics_complaints"))
	mux.HandleFunc("GET /api/analytics/retailers", authed(s.analyticsHandler.HandleRetailers, "analytics_retailers"))
	mux.HandleFunc("GET /api/analytics/scatter", authed(s.analyticsHandler.HandleScatter, "analytics_scatter"))

	if s.feed != nil {
		mux.Handle("GET /api/ws", s.feed)
	}
}

// Handler wraps mux with CORS for the configured browser origins.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	if len(s.allowedOrigins) == 0 {
		return mux
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         int((5 * time.Minute).Seconds()),
	})(mux)
}
