// Package api exposes the dashboard state and refresh trigger over HTTP.
// Views consume committed snapshots read-only; the only write path they
// have is the refresh trigger and the proxied resolve operations.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/palletops/warehouse-monitor/internal/dashboard"
	"github.com/palletops/warehouse-monitor/internal/dataservice"
	"github.com/palletops/warehouse-monitor/internal/domain"
	"github.com/palletops/warehouse-monitor/internal/pkg/httputil"
)

// Resolver is the subset of the Data Service the API proxies write
// operations to.
type Resolver interface {
	ResolveAnomaly(ctx context.Context, anomalyID string) (*dataservice.ResolveResult, error)
	ResolveCategory(ctx context.Context, anomalyType domain.AnomalyType) (*dataservice.ResolveResult, error)
	ResolveBulk(ctx context.Context, anomalyIDs []string) (*dataservice.ResolveResult, error)
	ResolveAll(ctx context.Context) (*dataservice.ResolveResult, error)
}

// History reads the refresh-cycle audit trail.
type History interface {
	RecentCycles(ctx context.Context, limit int) ([]dashboard.CycleRecord, error)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	store      *dashboard.Store
	controller *dashboard.Controller
	resolver   Resolver
	history    History // nil when Postgres is not configured
}

// NewHandlers creates a Handlers instance. history may be nil.
func NewHandlers(store *dashboard.Store, controller *dashboard.Controller, resolver Resolver, history History) *Handlers {
	return &Handlers{
		store:      store,
		controller: controller,
		resolver:   resolver,
		history:    history,
	}
}

// HealthCheck reports liveness and the current refresh phase.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.store.State()
	httputil.OK(w, map[string]any{
		"status":     "ok",
		"phase":      state.Phase,
		"generation": state.Generation,
	})
}

// GetDashboard returns the full committed refresh state.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.store.State())
}

// TriggerRefresh is the single refresh() entry point. The trigger is
// debounced; bursts collapse into one backend cycle.
func (h *Handlers) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.controller.Refresh()
	httputil.Accepted(w, map[string]any{
		"status": "scheduled",
		"busy":   h.controller.Busy(),
	})
}

// GetClassification returns the latest classification buckets.
func (h *Handlers) GetClassification(w http.ResponseWriter, r *http.Request) {
	state := h.store.State()
	if state.Snapshot == nil {
		httputil.NotFound(w, "no snapshot committed yet")
		return
	}
	httputil.OK(w, state.Snapshot.Classification)
}

// GetInsights returns the latest priority insights.
func (h *Handlers) GetInsights(w http.ResponseWriter, r *http.Request) {
	state := h.store.State()
	if state.Snapshot == nil {
		httputil.NotFound(w, "no snapshot committed yet")
		return
	}
	httputil.OK(w, state.Snapshot.Insights)
}

// ResolveAnomaly proxies a single-anomaly resolve and schedules a refresh.
func (h *Handlers) ResolveAnomaly(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.BadRequest(w, "missing anomaly id")
		return
	}
	h.proxyResolve(w, r, func(ctx context.Context) (*dataservice.ResolveResult, error) {
		return h.resolver.ResolveAnomaly(ctx, id)
	})
}

// ResolveCategory proxies a whole-category resolve.
func (h *Handlers) ResolveCategory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "type")
	anomalyType := domain.ParseAnomalyType(raw)
	if anomalyType == domain.TypeUnknown {
		httputil.BadRequest(w, "unknown anomaly type: "+raw)
		return
	}
	h.proxyResolve(w, r, func(ctx context.Context) (*dataservice.ResolveResult, error) {
		return h.resolver.ResolveCategory(ctx, anomalyType)
	})
}

// ResolveBulk proxies a bulk resolve of explicit anomaly IDs.
func (h *Handlers) ResolveBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		httputil.BadRequest(w, "ids must not be empty")
		return
	}
	h.proxyResolve(w, r, func(ctx context.Context) (*dataservice.ResolveResult, error) {
		return h.resolver.ResolveBulk(ctx, req.IDs)
	})
}

// ResolveAll proxies a resolve of every active anomaly.
func (h *Handlers) ResolveAll(w http.ResponseWriter, r *http.Request) {
	h.proxyResolve(w, r, func(ctx context.Context) (*dataservice.ResolveResult, error) {
		return h.resolver.ResolveAll(ctx)
	})
}

// proxyResolve forwards a resolve call to the backend and, on success,
// schedules a refresh so the dashboard reflects the change.
func (h *Handlers) proxyResolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) (*dataservice.ResolveResult, error)) {
	result, err := fn(r.Context())
	if err != nil {
		httputil.BadGateway(w, err)
		return
	}
	h.controller.Refresh()
	httputil.OK(w, result)
}

// GetRefreshHistory returns recent refresh-cycle audit rows.
func (h *Handlers) GetRefreshHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.NotFound(w, "cycle history not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := h.history.RecentCycles(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"cycles": records, "count": len(records)})
}
