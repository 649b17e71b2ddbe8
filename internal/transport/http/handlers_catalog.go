package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"kycengine/internal/catalog"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/platform/httputil"
	"kycengine/pkg/requestcontext"
)

// CatalogRegistry is the rule catalog holder the operator endpoints read and reload.
type CatalogRegistry interface {
	Current() *catalog.Snapshot
	Reload(ctx context.Context, force bool) (*catalog.Snapshot, error)
}

type catalogHandler struct {
	registry CatalogRegistry
	logger   *slog.Logger
}

func (h *catalogHandler) handleShow(w http.ResponseWriter, r *http.Request) {
	snap := h.registry.Current()
	if snap == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "no catalog loaded"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap.Summary())
}

// handleReload re-reads the catalog source. ?force=true permits installing a
// version that is not newer than the current one.
func (h *catalogHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	previous := ""
	if cur := h.registry.Current(); cur != nil {
		previous = cur.Version()
	}
	snap, err := h.registry.Reload(ctx, force)
	if err != nil {
		h.logger.WarnContext(ctx, "catalog reload rejected",
			"request_id", requestcontext.RequestID(ctx),
			"actor", requestcontext.Actor(ctx),
			"current_version", previous,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "catalog reloaded",
		"request_id", requestcontext.RequestID(ctx),
		"actor", requestcontext.Actor(ctx),
		"previous_version", previous,
		"version", snap.Version(),
	)
	httputil.WriteJSON(w, http.StatusOK, snap.Summary())
}
