package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/config"
	"github.com/loreline/loreline/internal/export"
	"github.com/loreline/loreline/internal/importer"
	"github.com/loreline/loreline/internal/sourcestore"
)

// MigrationHandler exposes the export and import operations to the dashboard.
type MigrationHandler struct {
	exporter  *export.Exporter
	importer  *importer.Importer
	importCfg config.ImportConfig
	logger    *slog.Logger
}

// ImportRequest is the body for POST /migration/import: the bundle plus
// optional per-run policy overrides.
type ImportRequest struct {
	Bundle         *bundle.ExportBundle `json:"bundle"`
	ReimportPolicy string               `json:"reimportPolicy,omitempty"`
}

// NewMigrationHandler creates the migration handler.
func NewMigrationHandler(log *slog.Logger, exp *export.Exporter, imp *importer.Importer, importCfg config.ImportConfig) *MigrationHandler {
	return &MigrationHandler{
		exporter:  exp,
		importer:  imp,
		importCfg: importCfg,
		logger:    log.With(slog.String("handler", "migration")),
	}
}

// Register mounts the migration routes.
func (h *MigrationHandler) Register(e *echo.Echo) {
	group := e.Group("/migration")
	group.POST("/communities/:id/export", h.Export)
	group.POST("/import", h.Import)
}

// Export builds and returns the export bundle for one community.
func (h *MigrationHandler) Export(c echo.Context) error {
	if h.exporter == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "exporter not configured")
	}
	communityID := strings.TrimSpace(c.Param("id"))
	if communityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "community id is required")
	}
	textFilter := strings.TrimSpace(c.QueryParam("filter"))

	b, err := h.exporter.Export(c.Request().Context(), communityID, textFilter)
	if err != nil {
		if errors.Is(err, sourcestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "community not found")
		}
		h.logger.Error("export failed", slog.String("community_id", communityID), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

// Import consumes a bundle and runs the import pipeline. The outcome travels
// in the result body, so the status is 200 even for a failed run.
func (h *MigrationHandler) Import(c echo.Context) error {
	if h.importer == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "importer not configured")
	}
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Bundle == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bundle is required")
	}

	opts := importer.Options{
		OwnerEmail: h.importCfg.OwnerEmail,
		OwnerName:  h.importCfg.OwnerName,
		Workers:    h.importCfg.Workers,
		Policy:     importer.ReimportPolicy(h.importCfg.ReimportPolicy),
	}
	if p := strings.TrimSpace(req.ReimportPolicy); p != "" {
		opts.Policy = importer.ReimportPolicy(p)
	}

	result := h.importer.Import(c.Request().Context(), req.Bundle, opts)
	return c.JSON(http.StatusOK, result)
}
