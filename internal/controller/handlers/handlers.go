// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"prodplane/internal/broadcast"
	"prodplane/internal/scheduler"
	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// StoreFactory combines the interfaces needed for the controller to function.
type StoreFactory interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	Ping(ctx context.Context) error
	store.MachineStore
	store.DemandStore
	store.HistoryStore
}

// Commander applies operator commands to machines. Implemented by the
// scheduler so command writes go through the same versioned update path
// as the engine loops.
type Commander interface {
	StartMachine(ctx context.Context, location string, id int64) (scheduler.CommandResult, error)
	PauseMachine(ctx context.Context, location string, id int64) (scheduler.CommandResult, error)
	StopMachine(ctx context.Context, location string, id int64) (scheduler.CommandResult, error)
	RenameMachine(ctx context.Context, location string, id int64, newName string) (scheduler.CommandResult, error)
}

// EventSource hands out event stream subscriptions.
type EventSource interface {
	Subscribe() *broadcast.Subscriber
	Unsubscribe(*broadcast.Subscriber)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store     StoreFactory
	commander Commander
	events    EventSource
}

// New creates a new Handlers instance with the given dependencies.
func New(s StoreFactory, c Commander, e EventSource) *Handlers {
	return &Handlers{store: s, commander: c, events: e}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// machinePath extracts the (location, id) pair every machine route carries.
func machinePath(r *http.Request) (string, int64, bool) {
	location := r.PathValue("location")
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if location == "" || err != nil || id <= 0 {
		return "", 0, false
	}
	return location, id, true
}
