package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iLink-CyberShARE/swim-api/pkg/httputil"
	"github.com/iLink-CyberShARE/swim-api/pkg/middleware"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
	"github.com/iLink-CyberShARE/swim-api/pkg/scenarios"
)

const (
	msgMetadataRetrieved = "Model execution metadata retrieved successfully"
	msgRunRetrieved      = "Scenario run retrieved successfully"
	msgRunsRetrieved     = "Scenario runs retrieved successfully"
	msgCrossRetrieved    = "Cross scenarios retrieved successfully"
	msgDatabaseError     = "Database connection error"
)

// ExecutionHandlers serves scenario runs to authenticated users
type ExecutionHandlers struct {
	resolver ScenarioResolver
	protect  func(http.Handler) http.Handler
	context  string
	logger   *observability.Logger
}

// NewExecutionHandlers creates execution handlers. semanticContext is echoed
// as "@context" in every success envelope.
func NewExecutionHandlers(resolver ScenarioResolver, protect func(http.Handler) http.Handler, semanticContext string, logger *observability.Logger) *ExecutionHandlers {
	return &ExecutionHandlers{
		resolver: resolver,
		protect:  protect,
		context:  semanticContext,
		logger:   logger,
	}
}

// RegisterRoutes registers execution routes; all of them require a token
func (h *ExecutionHandlers) RegisterRoutes(router *mux.Router) {
	r := router.PathPrefix("/swim-api/executions").Subrouter()
	r.Use(h.protect)

	r.HandleFunc("/public", h.listPublic).Methods("GET")
	r.HandleFunc("/public-runs/{id}", h.getPublicRun).Methods("GET")
	r.HandleFunc("/runs/{id}", h.getRun).Methods("GET")
	r.HandleFunc("/public-meta/bymodel/{id}", h.listPublicByModel).Methods("GET")
	r.HandleFunc("/private-meta/bymodel/{id}", h.listPrivateByModel).Methods("GET")
	r.HandleFunc("/private", h.listPrivate).Methods("GET")
	r.HandleFunc("/cross-scenarios", h.crossScenarios).Methods("POST")
	r.HandleFunc("/private-cross-scenarios", h.privateCrossScenarios).Methods("POST")
	r.HandleFunc("/delete/{id}", h.deleteRun).Methods("DELETE")
}

// listPublic handles GET /swim-api/executions/public
func (h *ExecutionHandlers) listPublic(w http.ResponseWriter, r *http.Request) {
	docs, err := h.resolver.ListPublicMetadata(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if len(docs) == 0 {
		httputil.WriteNotFoundError(w, "No public model executions found")
		return
	}
	httputil.WriteEnvelope(w, h.context, msgMetadataRetrieved, docs)
}

// getPublicRun handles GET /swim-api/executions/public-runs/{id}
func (h *ExecutionHandlers) getPublicRun(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.resolver.FindPublic(r.Context(), id)
	if err != nil {
		if errors.Is(err, scenarios.ErrNotFound) {
			httputil.WriteNotFoundError(w, "No public model executions found")
			return
		}
		h.storeError(w, r, err)
		return
	}
	httputil.WriteEnvelope(w, h.context, msgRunRetrieved, doc)
}

// getRun handles GET /swim-api/executions/runs/{id}. A public run wins over
// a private run with the same id; another user's private run is not found.
func (h *ExecutionHandlers) getRun(w http.ResponseWriter, r *http.Request) {
	owner, ok := requester(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.resolver.ResolveByID(r.Context(), id, owner)
	if err != nil {
		if errors.Is(err, scenarios.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Scenario run not found")
			return
		}
		h.storeError(w, r, err)
		return
	}
	httputil.WriteEnvelope(w, h.context, msgRunRetrieved, doc)
}

// listPublicByModel handles GET /swim-api/executions/public-meta/bymodel/{id}
func (h *ExecutionHandlers) listPublicByModel(w http.ResponseWriter, r *http.Request) {
	modelID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	docs, err := h.resolver.ListPublicByModel(r.Context(), modelID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if len(docs) == 0 {
		httputil.WriteNotFoundError(w, "No public model executions found from specified model")
		return
	}
	httputil.WriteEnvelope(w, h.context, msgRunsRetrieved, docs)
}

// listPrivateByModel handles GET /swim-api/executions/private-meta/bymodel/{id}
func (h *ExecutionHandlers) listPrivateByModel(w http.ResponseWriter, r *http.Request) {
	owner, ok := requester(w, r)
	if !ok {
		return
	}
	modelID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	docs, err := h.resolver.ListPrivateByModel(r.Context(), modelID, owner)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if len(docs) == 0 {
		httputil.WriteMessage(w, http.StatusNotFound, "No scenarios found")
		return
	}
	httputil.WriteEnvelope(w, h.context, msgRunsRetrieved, docs)
}

// listPrivate handles GET /swim-api/executions/private
func (h *ExecutionHandlers) listPrivate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requester(w, r)
	if !ok {
		return
	}

	docs, err := h.resolver.ListPrivateMetadata(r.Context(), owner)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if len(docs) == 0 {
		httputil.WriteNotFoundError(w, "No private model executions found")
		return
	}
	httputil.WriteEnvelope(w, h.context, msgMetadataRetrieved, docs)
}

// crossScenarioRequest names the scenarios and outputs to compare
type crossScenarioRequest struct {
	ScenarioIDs []string `json:"scenarioids"`
	OutputNames []string `json:"outputnames"`
}

// crossScenarios handles POST /swim-api/executions/cross-scenarios
func (h *ExecutionHandlers) crossScenarios(w http.ResponseWriter, r *http.Request) {
	h.filterOutputs(w, r, nil)
}

// privateCrossScenarios handles POST /swim-api/executions/private-cross-scenarios
func (h *ExecutionHandlers) privateCrossScenarios(w http.ResponseWriter, r *http.Request) {
	owner, ok := requester(w, r)
	if !ok {
		return
	}
	h.filterOutputs(w, r, &owner)
}

func (h *ExecutionHandlers) filterOutputs(w http.ResponseWriter, r *http.Request, owner *int64) {
	var req crossScenarioRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	groups, err := h.resolver.FilterOutputs(r.Context(), req.ScenarioIDs, req.OutputNames, owner)
	if err != nil {
		if errors.Is(err, scenarios.ErrMissingInput) {
			httputil.WriteBadRequest(w, "scenarioids and outputnames must be non-empty arrays")
			return
		}
		h.storeError(w, r, err)
		return
	}
	if len(groups) == 0 {
		httputil.WriteNotFoundError(w, "Cross scenarios not found")
		return
	}
	httputil.WriteEnvelope(w, h.context, msgCrossRetrieved, groups)
}

// deleteRun handles DELETE /swim-api/executions/delete/{id}
func (h *ExecutionHandlers) deleteRun(w http.ResponseWriter, r *http.Request) {
	owner, ok := requester(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.resolver.DeleteOwned(r.Context(), id, owner); err != nil {
		if errors.Is(err, scenarios.ErrNotFound) {
			httputil.WriteNotFoundError(w, "Error deleting scenario")
			return
		}
		h.storeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "Scenario deleted successfully",
		"result":  1,
	})
}

func (h *ExecutionHandlers) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	observability.UpdateLoggerWithTraceContext(r.Context(), h.logger).
		WithError(err).
		WithField("path", r.URL.Path).
		Error("scenario store failure")
	httputil.WriteInternalError(w, msgDatabaseError)
}

// requester returns the verified user id of the caller
func requester(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "Authentication error. Token required.")
		return 0, false
	}
	return claims.ID, true
}
