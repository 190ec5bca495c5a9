package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"prodplane/internal/scheduler"
	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// GetMachine handles GET /machines/{location}/{id}.
func (h *Handlers) GetMachine(w http.ResponseWriter, r *http.Request) {
	location, id, ok := machinePath(r)
	if !ok {
		h.httpError(w, "Invalid machine path", http.StatusBadRequest)
		return
	}

	m, err := h.store.GetMachine(r.Context(), location, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Machine not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load machine", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, machineView(*m))
}

// StartMachine handles POST /machines/{location}/{id}/start.
func (h *Handlers) StartMachine(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, h.commander.StartMachine)
}

// PauseMachine handles POST /machines/{location}/{id}/pause.
func (h *Handlers) PauseMachine(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, h.commander.PauseMachine)
}

// StopMachine handles POST /machines/{location}/{id}/stop.
func (h *Handlers) StopMachine(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, h.commander.StopMachine)
}

// RenameMachine handles POST /machines/{location}/{id}/rename.
func (h *Handlers) RenameMachine(w http.ResponseWriter, r *http.Request) {
	location, id, ok := machinePath(r)
	if !ok {
		h.httpError(w, "Invalid machine path", http.StatusBadRequest)
		return
	}

	var req api.RenameMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.commander.RenameMachine(r.Context(), location, id, req.NewName)
	if err != nil {
		h.httpError(w, "Failed to apply command", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, api.CommandResponse{Applied: res.Applied, Reason: res.Reason})
}

func (h *Handlers) runCommand(w http.ResponseWriter, r *http.Request, cmd func(ctx context.Context, location string, id int64) (scheduler.CommandResult, error)) {
	location, id, ok := machinePath(r)
	if !ok {
		h.httpError(w, "Invalid machine path", http.StatusBadRequest)
		return
	}

	res, err := cmd(r.Context(), location, id)
	if err != nil {
		h.httpError(w, "Failed to apply command", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, api.CommandResponse{Applied: res.Applied, Reason: res.Reason})
}
