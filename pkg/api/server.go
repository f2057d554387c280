package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iLink-CyberShARE/swim-api/pkg/audit"
	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
	"github.com/iLink-CyberShARE/swim-api/pkg/middleware"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
	"github.com/iLink-CyberShARE/swim-api/pkg/scenarios"
)

// AuthService is the account surface served under /swim-auth-api
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Session, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error)
	ChangePassword(ctx context.Context, claims *auth.Claims, req auth.ChangePasswordRequest) error
}

// ScenarioResolver is the scenario surface served under /swim-api/executions
type ScenarioResolver interface {
	ResolveByID(ctx context.Context, id string, requester int64) (scenarios.Document, error)
	FindPublic(ctx context.Context, id string) (scenarios.Document, error)
	ListPublicMetadata(ctx context.Context) ([]scenarios.Document, error)
	ListPrivateMetadata(ctx context.Context, owner int64) ([]scenarios.Document, error)
	ListPublicByModel(ctx context.Context, modelID string) ([]scenarios.Document, error)
	ListPrivateByModel(ctx context.Context, modelID string, owner int64) ([]scenarios.Document, error)
	DeleteOwned(ctx context.Context, id string, owner int64) error
	FilterOutputs(ctx context.Context, ids, names []string, owner *int64) ([]scenarios.OutputGroup, error)
}

// LogStore persists the lookup tables, client events and execution records
// of the logger API
type LogStore interface {
	CreateLevel(ctx context.Context, name string) (*audit.NamedEntry, error)
	CreateCategory(ctx context.Context, name string) (*audit.NamedEntry, error)
	CreateEvent(ctx context.Context, event *audit.Event) error
	CreateExecution(ctx context.Context, exec *audit.ExecutionLog) error
	UpdateRunStatus(ctx context.Context, exec *audit.ExecutionLog) error
}

// Dependencies wires the server to its collaborators. Any of Auth, Scenarios
// and Logs may be nil, in which case that API is not mounted.
type Dependencies struct {
	Auth      AuthService
	Scenarios ScenarioResolver
	Logs      LogStore
	Events    audit.Logger

	// Protect authenticates a request and stores its claims in the context
	Protect func(http.Handler) http.Handler
	Limiter *middleware.AttemptLimiter

	Health   *observability.HealthChecker
	Registry *prometheus.Registry

	// Context is echoed as "@context" in scenario responses
	Context string
	Logger  *observability.Logger
}

// Server represents our API server
type Server struct {
	router *mux.Router
	deps   Dependencies
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, io.Discard)
	}
	if deps.Events == nil {
		deps.Events = audit.NopLogger{}
	}
	if deps.Protect == nil {
		deps.Protect = denyAll
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.deps.Health != nil {
		s.router.HandleFunc("/healthz", s.deps.Health.Liveness).Methods("GET")
		s.router.HandleFunc("/readyz", s.deps.Health.Readiness).Methods("GET")
	}
	if s.deps.Registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.deps.Registry)).Methods("GET")
	}

	if s.deps.Auth != nil {
		NewAuthHandlers(s.deps.Auth, s.deps.Protect, s.deps.Limiter, s.deps.Logger).RegisterRoutes(s.router)
	}
	if s.deps.Scenarios != nil {
		NewExecutionHandlers(s.deps.Scenarios, s.deps.Protect, s.deps.Context, s.deps.Logger).RegisterRoutes(s.router)
	}
	if s.deps.Logs != nil {
		NewLoggerHandlers(s.deps.Logs, s.deps.Events, s.deps.Protect, s.deps.Logger).RegisterRoutes(s.router)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router so callers can wrap it in middleware
func (s *Server) Router() *mux.Router {
	return s.router
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// denyAll stands in for a missing authenticator so protected routes never
// run unauthenticated
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"Authentication error. Token required.","status":401}`+"\n")
	})
}
