package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// CatalogService defines what the catalog handler requires.
type CatalogService interface {
	ListGames(ctx context.Context) ([]domain.Game, error)
	ResolveItems(ctx context.Context, gameID string, itemIDs []string) ([]domain.CatalogItem, error)
}

// CatalogHandler serves read-only catalog metadata.
type CatalogHandler struct {
	catalog CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListGames returns the game catalog.
// GET /api/catalog/games
func (h *CatalogHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.catalog.ListGames(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

// ResolveItems resolves item metadata for one game scope.
// GET /api/catalog/games/{scope}/items?ids=a,b,c
func (h *CatalogHandler) ResolveItems(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing ids parameter")
		return
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	items, err := h.catalog.ResolveItems(r.Context(), scope, ids)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
