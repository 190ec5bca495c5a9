package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// ScheduleJob handles POST /jobs.
// It queues internally originated demand; the assignment loop places it
// on a machine on its next pass.
func (h *Handlers) ScheduleJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ScheduleJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.WorkOrder == "" || req.Location == "" {
		h.httpError(w, "WorkOrder and Location are required", http.StatusBadRequest)
		return
	}
	if req.Qty <= 0 {
		h.httpError(w, "Qty must be positive", http.StatusBadRequest)
		return
	}

	job := &store.ScheduledJob{
		WorkOrder: req.WorkOrder,
		Location:  req.Location,
		PipeSize:  req.PipeSize,
		Qty:       req.Qty,
		Priority:  req.Priority,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	jobID, err := h.store.CreateScheduledJob(ctx, tx, job)
	if err != nil {
		h.httpError(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		h.httpError(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.ScheduleJobResponse{JobID: jobID})
}
