package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iLink-CyberShARE/swim-api/pkg/audit"
	"github.com/iLink-CyberShARE/swim-api/pkg/httputil"
	"github.com/iLink-CyberShARE/swim-api/pkg/middleware"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// LoggerHandlers records events and model execution progress
type LoggerHandlers struct {
	store   LogStore
	events  audit.Logger
	protect func(http.Handler) http.Handler
	logger  *observability.Logger
}

// NewLoggerHandlers creates logger handlers
func NewLoggerHandlers(store LogStore, events audit.Logger, protect func(http.Handler) http.Handler, logger *observability.Logger) *LoggerHandlers {
	return &LoggerHandlers{
		store:   store,
		events:  events,
		protect: protect,
		logger:  logger,
	}
}

// RegisterRoutes registers logger routes; all of them require a token and
// the lookup tables additionally require a content manager
func (h *LoggerHandlers) RegisterRoutes(router *mux.Router) {
	r := router.PathPrefix("/swim-logger-api").Subrouter()
	r.Use(h.protect)

	r.Handle("/level", middleware.RequireContentManager(http.HandlerFunc(h.createLevel))).Methods("POST")
	r.Handle("/eventcategory", middleware.RequireContentManager(http.HandlerFunc(h.createCategory))).Methods("POST")
	r.HandleFunc("/eventlog", h.createEvent).Methods("POST")
	r.HandleFunc("/executionlog", h.createExecution).Methods("POST")
	r.HandleFunc("/updaterunstatus", h.updateRunStatus).Methods("POST")
}

type nameRequest struct {
	Name string `json:"name"`
}

// createLevel handles POST /swim-logger-api/level
func (h *LoggerHandlers) createLevel(w http.ResponseWriter, r *http.Request) {
	h.createNamed(w, r, h.store.CreateLevel)
}

// createCategory handles POST /swim-logger-api/eventcategory
func (h *LoggerHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	h.createNamed(w, r, h.store.CreateCategory)
}

func (h *LoggerHandlers) createNamed(w http.ResponseWriter, r *http.Request, create func(ctx context.Context, name string) (*audit.NamedEntry, error)) {
	var req nameRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	if _, err := create(r.Context(), req.Name); err != nil {
		if errors.Is(err, audit.ErrInvalidName) {
			httputil.WriteBadRequest(w, "name is required")
			return
		}
		h.serverError(w, r, err)
		return
	}

	httputil.WriteCreated(w, req)
}

type eventRequest struct {
	Level    json.Number `json:"level"`
	Category json.Number `json:"category"`
	Message  string      `json:"message"`
}

// createEvent handles POST /swim-logger-api/eventlog. The actor is always
// the token holder, and the event is answered only once it is stored.
func (h *LoggerHandlers) createEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "Authentication error. Token required.")
		return
	}

	var req eventRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	level, levelErr := req.Level.Int64()
	category, categoryErr := req.Category.Int64()
	if !httputil.ValidateAll(w,
		func() (bool, string) { return levelErr == nil && level > 0, "level must be a positive number" },
		func() (bool, string) { return categoryErr == nil && category > 0, "category must be a positive number" },
		func() (bool, string) { return strings.TrimSpace(req.Message) != "", "message is required" },
	) {
		return
	}

	event := audit.NewEvent(audit.Level(level), audit.Category(category), strings.TrimSpace(req.Message), audit.UserID(claims.ID))
	if err := h.store.CreateEvent(r.Context(), event); err != nil {
		h.serverError(w, r, err)
		return
	}

	httputil.WriteCreated(w, event)
}

type executionRequest struct {
	ModelID        json.Number `json:"modelId"`
	UserScenarioID string      `json:"userScenarioId"`
	Status         string      `json:"status"`
	StartTime      string      `json:"startTime"`
	EndTime        string      `json:"endTime"`
}

func (req *executionRequest) validate(w http.ResponseWriter) (int64, bool) {
	modelID, err := req.ModelID.Int64()
	req.UserScenarioID = strings.TrimSpace(req.UserScenarioID)
	req.Status = strings.TrimSpace(req.Status)
	ok := httputil.ValidateAll(w,
		func() (bool, string) { return err == nil, "modelId must be a number" },
		func() (bool, string) { return req.UserScenarioID != "", "userScenarioId is required" },
		func() (bool, string) { return req.Status != "", "status is required" },
	)
	return modelID, ok
}

// createExecution handles POST /swim-logger-api/executionlog
func (h *LoggerHandlers) createExecution(w http.ResponseWriter, r *http.Request) {
	var req executionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	modelID, ok := req.validate(w)
	if !ok {
		return
	}

	exec := &audit.ExecutionLog{
		ModelID:        modelID,
		UserScenarioID: req.UserScenarioID,
		Status:         req.Status,
	}
	if err := h.store.CreateExecution(r.Context(), exec); err != nil {
		h.serverError(w, r, err)
		return
	}

	httputil.WriteCreated(w, exec)
}

// updateRunStatus handles POST /swim-logger-api/updaterunstatus. The body
// is the number of rows updated, as a one element array.
func (h *LoggerHandlers) updateRunStatus(w http.ResponseWriter, r *http.Request) {
	var req executionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	modelID, ok := req.validate(w)
	if !ok {
		return
	}

	start, err := audit.ParseRunTime(strings.TrimSpace(req.StartTime))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	end, err := audit.ParseRunTime(strings.TrimSpace(req.EndTime))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	exec := &audit.ExecutionLog{
		ModelID:        modelID,
		UserScenarioID: req.UserScenarioID,
		Status:         req.Status,
		StartTime:      start,
		EndTime:        end,
	}
	if err := h.store.UpdateRunStatus(r.Context(), exec); err != nil {
		if errors.Is(err, audit.ErrExecutionNotFound) {
			httputil.WriteCreated(w, []int{0})
			return
		}
		h.serverError(w, r, err)
		return
	}

	httputil.WriteCreated(w, []int{1})
}

// serverError logs err, records it as a server event against the caller and
// answers 500
func (h *LoggerHandlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	observability.UpdateLoggerWithTraceContext(r.Context(), h.logger).
		WithError(err).
		WithField("path", r.URL.Path).
		Error("logger request failed")

	var actor *int64
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		actor = audit.UserID(claims.ID)
	}
	event := audit.NewEvent(audit.LevelError, audit.CategoryServer, fmt.Sprintf("server error: %v", err), actor)
	if logErr := h.events.Log(r.Context(), event); logErr != nil {
		h.logger.WithError(logErr).Warn("failed to record server event")
	}

	httputil.WriteInternalError(w, msgDatabaseError)
}
