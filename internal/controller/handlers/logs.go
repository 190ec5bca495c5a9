package handlers

import (
	"net/http"
	"strconv"
	"time"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// GetLogs handles GET /logs.
// Called by the User (CLI/UI) to view per-unit production records.
// Supported query parameters: location, since, until (RFC 3339), limit.
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := store.LogFilter{Location: query.Get("location")}

	if since := query.Get("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.httpError(w, "Invalid since timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = &parsed
	}
	if until := query.Get("until"); until != "" {
		parsed, err := time.Parse(time.RFC3339, until)
		if err != nil {
			h.httpError(w, "Invalid until timestamp", http.StatusBadRequest)
			return
		}
		filter.Until = &parsed
	}
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 10000 {
			filter.Limit = parsed
		}
	}

	logs, err := h.store.ListProductionLogs(ctx, filter)
	if err != nil {
		h.httpError(w, "Failed to fetch logs", http.StatusInternalServerError)
		return
	}

	apiLogs := make([]api.ProductionLogEntry, len(logs))
	for i, log := range logs {
		apiLogs[i] = api.ProductionLogEntry{
			MachineID:   log.MachineID,
			Location:    log.Location,
			WorkOrder:   log.WorkOrder,
			PipeSize:    log.PipeSize,
			ProducedQty: log.ProducedQty,
			Timestamp:   log.Timestamp,
		}
	}
	h.respondJson(w, http.StatusOK, api.GetLogsResponse{Logs: apiLogs})
}
