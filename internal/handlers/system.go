package handlers

import (
	"net/http"
)

// InstallDatabase applies the embedded schema files
// @Summary Install Database Schema
// @Description Executes SQL migrations for PostgreSQL and, when configured, ClickHouse
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /system/install [post]
func (h *Handler) InstallDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results := make(map[string]interface{})
	hasError := false

	if applied, err := h.migrator.Postgres(ctx, h.schemas, "postgres"); err != nil {
		h.logger.Errorw("Failed to install schema", "db", "PostgreSQL", "error", err)
		results["postgres"] = "failed"
		hasError = true
	} else {
		results["postgres"] = applied
	}

	if h.ch != nil {
		if applied, err := h.migrator.ClickHouse(ctx, h.schemas, "clickhouse"); err != nil {
			h.logger.Errorw("Failed to install schema", "db", "ClickHouse", "error", err)
			results["clickhouse"] = "failed"
			hasError = true
		} else {
			results["clickhouse"] = applied
		}
	}

	statusCode := http.StatusOK
	if hasError {
		statusCode = http.StatusInternalServerError
	}
	h.jsonResponse(w, statusCode, map[string]interface{}{
		"status":  "completed",
		"results": results,
		"error":   hasError,
	})
}
