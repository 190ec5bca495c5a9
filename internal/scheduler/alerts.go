package scheduler

import (
	"context"
	"fmt"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// alertLevel is an ordered severity tier for production progress.
type alertLevel int

const (
	alertNone     alertLevel = 0
	alertWarning  alertLevel = 1 // >= 75%
	alertCritical alertLevel = 2 // >= 90%
	alertComplete alertLevel = 3 // >= 100%
)

// classifyProgress maps a completion percentage to its severity tier.
func classifyProgress(percent float64) alertLevel {
	switch {
	case percent >= 100:
		return alertComplete
	case percent >= 90:
		return alertCritical
	case percent >= 75:
		return alertWarning
	default:
		return alertNone
	}
}

// alertPass fires a notification for every running machine whose severity
// tier changed since the last pass. A machine sitting at a stable
// percentage fires once and then stays quiet until its tier moves.
func (s *Scheduler) alertPass(ctx context.Context) error {
	machines, err := s.store.ListMachinesByStatus(ctx, store.MachineStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to list running machines: %w", err)
	}

	for _, m := range machines {
		if !m.Assigned() || m.TargetQty <= 0 {
			continue
		}

		percent := m.Progress()
		level := classifyProgress(percent)
		last := s.lastAlertLevel[m.ID]

		switch {
		case level == alertNone:
			// Dropped below the lowest threshold (restart or
			// reassignment): arm the tiers again.
			s.lastAlertLevel[m.ID] = alertNone
		case level != last:
			s.lastAlertLevel[m.ID] = level
			s.hub.Broadcast(ctx, api.Event{
				Type:      api.EventAlert,
				MachineID: m.ID,
				Location:  m.Location,
				WorkOrder: m.WorkOrder,
				Level:     int(level),
				Produced:  m.ProducedQty,
				Target:    m.TargetQty,
				Message:   alertMessage(m.Name, level, percent),
			})
		}
	}
	return nil
}

func alertMessage(name string, level alertLevel, percent float64) string {
	switch level {
	case alertComplete:
		return fmt.Sprintf("Machine %s completed", name)
	case alertCritical:
		return fmt.Sprintf("Machine %s critical at %.1f%%", name, percent)
	default:
		return fmt.Sprintf("Machine %s at %.1f%%", name, percent)
	}
}
