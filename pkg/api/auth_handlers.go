package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
	"github.com/iLink-CyberShARE/swim-api/pkg/httputil"
	"github.com/iLink-CyberShARE/swim-api/pkg/middleware"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	service AuthService
	protect func(http.Handler) http.Handler
	limiter *middleware.AttemptLimiter
	logger  *observability.Logger
}

// NewAuthHandlers creates a new auth handlers instance. limiter may be nil.
func NewAuthHandlers(service AuthService, protect func(http.Handler) http.Handler, limiter *middleware.AttemptLimiter, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		protect: protect,
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	r := router.PathPrefix("/swim-auth-api").Subrouter()

	r.Handle("/signup", h.limiter.Limit("signup")(http.HandlerFunc(h.signup))).Methods("POST")
	r.Handle("/authenticate", h.limiter.Limit("authenticate")(http.HandlerFunc(h.authenticate))).Methods("POST")
	r.Handle("/authenticateGuest", h.limiter.Limit("authenticateGuest")(http.HandlerFunc(h.authenticateGuest))).Methods("POST")

	r.Handle("/change", h.protect(http.HandlerFunc(h.changePassword))).Methods("POST")
}

// signup handles POST /swim-auth-api/signup
func (h *AuthHandlers) signup(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingInput):
			httputil.WriteBadRequest(w, "Please provide email and a password.")
		case errors.Is(err, auth.ErrInvalidEmail):
			httputil.WriteBadRequest(w, "Please provide a valid email address.")
		case errors.Is(err, auth.ErrInvalidInput):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, auth.ErrDuplicateIdentity):
			httputil.WriteInternalError(w, "Email address already registered.")
		default:
			h.serverError(r, err, "signup failed")
			httputil.WriteInternalError(w, "Error registering user.")
		}
		return
	}

	httputil.WriteCreated(w, session)
}

// authenticate handles POST /swim-auth-api/authenticate
func (h *AuthHandlers) authenticate(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	h.login(w, r, req)
}

// authenticateGuest handles POST /swim-auth-api/authenticateGuest
func (h *AuthHandlers) authenticateGuest(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, auth.LoginRequest{IsGuest: true})
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request, req auth.LoginRequest) {
	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingInput):
			httputil.WriteBadRequest(w, "Username and password are needed!")
		case errors.Is(err, auth.ErrLoginFailed):
			httputil.WriteMessage(w, http.StatusNotFound, "Authentication failed!")
		default:
			h.serverError(r, err, "login failed")
			httputil.WriteInternalError(w, "Authentication error.")
		}
		return
	}

	httputil.WriteSuccess(w, session)
}

// changePassword handles POST /swim-auth-api/change
func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}

	var req auth.ChangePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), claims, req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingInput):
			httputil.WriteBadRequest(w, "Invalid inputs")
		case errors.Is(err, auth.ErrInvalidInput):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, auth.ErrUserNotFound):
			httputil.WriteMessage(w, http.StatusNotFound, "User not found")
		case errors.Is(err, auth.ErrPasswordIncorrect):
			httputil.WriteInternalError(w, "Current password is incorrect")
		default:
			h.serverError(r, err, "password change failed")
			httputil.WriteInternalError(w, "Error changing password.")
		}
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *AuthHandlers) serverError(r *http.Request, err error, msg string) {
	observability.UpdateLoggerWithTraceContext(r.Context(), h.logger).
		WithError(err).
		WithField("path", r.URL.Path).
		Error(msg)
}
