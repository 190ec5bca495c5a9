package scheduler

import (
	"context"
	"errors"
	"time"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// commandRetries bounds how often a command re-reads and retries after a
// version conflict before giving up as not-applied.
const commandRetries = 3

// CommandResult reports whether a machine command took effect. Commands
// against unknown machines are not errors; they simply do not apply.
type CommandResult struct {
	Applied bool
	Reason  string
}

// StartMachine puts an assigned machine into production. It stamps the
// tick clock and informs the external source the order is in process.
func (s *Scheduler) StartMachine(ctx context.Context, location string, id int64) (CommandResult, error) {
	return s.applyCommand(ctx, location, id, "start", func(m *store.Machine) (bool, string) {
		if !m.Assigned() {
			return false, "machine has no work order"
		}
		now := time.Now().UTC()
		m.Status = store.MachineStatusRunning
		m.Locked = true
		m.LastTickAt = &now
		return true, ""
	})
}

// PauseMachine suspends ticking without releasing the assignment.
func (s *Scheduler) PauseMachine(ctx context.Context, location string, id int64) (CommandResult, error) {
	return s.applyCommand(ctx, location, id, "pause", func(m *store.Machine) (bool, string) {
		m.Status = store.MachineStatusPaused
		return true, ""
	})
}

// StopMachine halts the machine; the assignment stays for later resume.
func (s *Scheduler) StopMachine(ctx context.Context, location string, id int64) (CommandResult, error) {
	return s.applyCommand(ctx, location, id, "stop", func(m *store.Machine) (bool, string) {
		m.Status = store.MachineStatusStopped
		return true, ""
	})
}

// RenameMachine updates the display name.
func (s *Scheduler) RenameMachine(ctx context.Context, location string, id int64, newName string) (CommandResult, error) {
	if newName == "" {
		return CommandResult{Applied: false, Reason: "name must not be empty"}, nil
	}
	return s.applyCommand(ctx, location, id, "rename", func(m *store.Machine) (bool, string) {
		m.Name = newName
		return true, ""
	})
}

// applyCommand runs one compare-and-mutate command against a machine,
// re-reading on version conflicts a bounded number of times.
func (s *Scheduler) applyCommand(ctx context.Context, location string, id int64, name string, mutate func(*store.Machine) (bool, string)) (CommandResult, error) {
	for attempt := 0; attempt < commandRetries; attempt++ {
		m, err := s.store.GetMachine(ctx, location, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return CommandResult{Applied: false, Reason: "no such machine"}, nil
			}
			return CommandResult{}, err
		}

		ok, reason := mutate(m)
		if !ok {
			return CommandResult{Applied: false, Reason: reason}, nil
		}

		err = s.store.UpdateMachine(ctx, nil, m)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return CommandResult{}, err
		}

		if name == "start" && m.Assigned() {
			go s.pusher.SetStatus(context.WithoutCancel(ctx), m.WorkOrder, "In Process")
		}

		s.hub.Broadcast(ctx, api.Event{
			Type:      api.EventCommand,
			MachineID: m.ID,
			Location:  m.Location,
			WorkOrder: m.WorkOrder,
			Status:    string(m.Status),
			Message:   name,
		})
		return CommandResult{Applied: true}, nil
	}

	return CommandResult{Applied: false, Reason: "machine busy, try again"}, nil
}
