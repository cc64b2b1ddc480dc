// Package v1 provides the REST API handlers for token registry access.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verinode/token-registry-server/internal/api/common"
	"github.com/verinode/token-registry-server/internal/service"
	"github.com/verinode/token-registry-server/internal/telemetry"
	"github.com/verinode/token-registry-server/internal/tokens"
	"github.com/verinode/token-registry-server/pkg/versions"
)

// storageErrorBody is the exact response body for failed storage calls.
// The underlying cause is logged server-side and never sent to the caller.
const storageErrorBody = "storage layer error"

// RegisterTokenRequest is the request body for registering a token.
// A nil ID asks the registry to assign the next identifier.
type RegisterTokenRequest struct {
	ID       *tokens.TokenID   `json:"id"`
	Address  ethcommon.Address `json:"address"`
	Symbol   string            `json:"symbol"`
	Decimals uint8             `json:"decimals"`
}

// ErrorResponse is the JSON error envelope. It exists as a named type so
// the route annotations can reference it.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes carries the dependencies of the token handlers
type Routes struct {
	service service.TokenRegistry
	metrics *telemetry.RegistryMetrics
}

// RouterOption configures the token registry routes
type RouterOption func(*Routes)

// WithRegistryMetrics enables recording of registry metrics. A nil value
// leaves metrics off.
func WithRegistryMetrics(m *telemetry.RegistryMetrics) RouterOption {
	return func(routes *Routes) {
		routes.metrics = m
	}
}

// NewRoutes binds the handlers' dependencies and applies the options
func NewRoutes(svc service.TokenRegistry, opts ...RouterOption) *Routes {
	routes := &Routes{
		service: svc,
	}
	for _, opt := range opts {
		opt(routes)
	}
	return routes
}

// Router mounts the token registry operations
func Router(svc service.TokenRegistry, opts ...RouterOption) http.Handler {
	routes := NewRoutes(svc, opts...)

	r := chi.NewRouter()

	r.Post("/", routes.registerToken)
	r.Get("/", routes.listTokens)
	r.Get("/{tokenID}", routes.getToken)

	return r
}

// registerToken handles POST /tokens
//
// @Summary		Register a token
// @Description	Register or replace a token definition. A request without an id is assigned the current registry count as its identifier.
// @Tags		tokens
// @Accept		json
// @Produce		json
// @Param		token	body		RegisterTokenRequest	true	"Token definition"
// @Success		200		{object}	tokens.Token
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{string}	string	"storage layer error"
// @Security	BearerAuth
// @Router		/tokens [post]
func (routes *Routes) registerToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	// An explicit id is used verbatim. Otherwise the current registry count
	// becomes the new id. The count and the store are separate statements
	// with no transaction spanning them, so two concurrent id-less requests
	// can observe the same count and write the same id; the later write
	// wins. With server.workers at its default of 1 requests execute one
	// at a time and the window never opens.
	var id tokens.TokenID
	if req.ID != nil {
		id = *req.ID
	} else {
		count, err := routes.service.TokenCount(r.Context())
		if err != nil {
			writeStorageError(w, r, err)
			return
		}
		id = tokens.TokenID(count)
	}

	token := tokens.Token{
		ID:       id,
		Address:  req.Address,
		Symbol:   req.Symbol,
		Decimals: req.Decimals,
	}

	if err := routes.service.StoreToken(r.Context(), token); err != nil {
		writeStorageError(w, r, err)
		return
	}

	routes.metrics.RecordRegistration(r.Context(), req.ID != nil)

	common.WriteJSONResponse(w, token, http.StatusOK)
}

// listTokens handles GET /tokens
//
// @Summary		List tokens
// @Description	Get all registered tokens ordered by identifier
// @Tags		tokens
// @Produce		json
// @Success		200	{array}		tokens.Token
// @Failure		500	{string}	string	"storage layer error"
// @Security	BearerAuth
// @Router		/tokens [get]
func (routes *Routes) listTokens(w http.ResponseWriter, r *http.Request) {
	list, err := routes.service.ListTokens(r.Context())
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	if list == nil {
		list = []tokens.Token{}
	}

	routes.metrics.RecordTokensTotal(r.Context(), int64(len(list)))

	common.WriteJSONResponse(w, list, http.StatusOK)
}

// getToken handles GET /tokens/{tokenID}
//
// @Summary		Get a token
// @Description	Get a single registered token by identifier
// @Tags		tokens
// @Produce		json
// @Param		tokenID	path		int	true	"Token identifier (0-65535)"
// @Success		200		{object}	tokens.Token
// @Failure		400		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Failure		500		{string}	string	"storage layer error"
// @Security	BearerAuth
// @Router		/tokens/{tokenID} [get]
func (routes *Routes) getToken(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "tokenID")
	idVal, err := strconv.ParseUint(idParam, 10, 16)
	if err != nil {
		common.WriteErrorResponse(w, "Invalid token id: must be an integer between 0 and 65535", http.StatusBadRequest)
		return
	}

	token, err := routes.service.GetToken(r.Context(), tokens.TokenID(idVal))
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			common.WriteErrorResponse(w, service.ErrTokenNotFound.Error(), http.StatusNotFound)
			return
		}
		writeStorageError(w, r, err)
		return
	}

	common.WriteJSONResponse(w, token, http.StatusOK)
}

// writeStorageError reports a failed storage call. The cause is logged at
// warn level with the request id; the caller only ever sees the fixed body.
func writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	slog.WarnContext(r.Context(), "Storage layer failure",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)

	common.WriteTextResponse(w, storageErrorBody, http.StatusInternalServerError)
}

// statusResponse is the body of the liveness and readiness probes
type statusResponse struct {
	Status string `json:"status"`
}

// HealthRouter serves the operational probes: liveness, readiness and
// build information. These sit outside /tokens and outside authentication.
func HealthRouter(svc service.TokenRegistry) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler reports that the process is up
//
// @Summary		Health check
// @Description	Check if the token registry API is healthy
// @Tags		system
// @Produce		json
// @Success		200	{object}	statusResponse
// @Router		/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, statusResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler reports whether storage can be reached
//
// @Summary		Readiness check
// @Description	Check if the token registry API is ready to serve requests
// @Tags		system
// @Produce		json
// @Success		200	{object}	statusResponse
// @Failure		503	{object}	ErrorResponse
// @Router		/readiness [get]
func readinessHandler(svc service.TokenRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "Service not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}

		common.WriteJSONResponse(w, statusResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler reports the build stamped into the binary
//
// @Summary		Version information
// @Description	Get version information about the token registry API
// @Tags		system
// @Produce		json
// @Success		200	{object}	map[string]string
// @Router		/version [get]
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	common.WriteJSONResponse(w, map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
		"platform":   info.Platform,
	}, http.StatusOK)
}
