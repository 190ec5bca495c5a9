package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// tickPass advances produced counters for every running machine based on
// wall-clock time elapsed since its last tick.
func (s *Scheduler) tickPass(ctx context.Context) error {
	machines, err := s.store.ListMachinesByStatus(ctx, store.MachineStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to list running machines: %w", err)
	}

	now := time.Now().UTC()
	for i := range machines {
		if err := s.tickMachine(ctx, machines[i], now); err != nil {
			s.logger.Error("tick failed", "machine", machines[i].ID, "error", err)
		}
	}
	return nil
}

// produceUnits computes how many whole rate-intervals fit in the time
// since last, capped at remaining, and the tick timestamp advanced by
// exactly that many intervals. Advancing by whole intervals (not to now)
// preserves the remainder toward the next unit, which is what makes a
// repeated tick at the same instant a no-op.
func produceUnits(now, last time.Time, secondsPerUnit float64, remaining int64) (int64, time.Time) {
	if secondsPerUnit <= 0 || remaining <= 0 {
		return 0, last
	}
	elapsed := now.Sub(last).Seconds()
	if elapsed < secondsPerUnit {
		return 0, last
	}
	units := int64(elapsed / secondsPerUnit)
	if units > remaining {
		units = remaining
	}
	advanced := last.Add(time.Duration(float64(units) * secondsPerUnit * float64(time.Second)))
	return units, advanced
}

func (s *Scheduler) tickMachine(ctx context.Context, m store.Machine, now time.Time) error {
	if !m.Assigned() || m.SecondsPerUnit <= 0 {
		return nil
	}

	// First tick after a start: anchor the clock, produce nothing yet.
	if m.LastTickAt == nil {
		m.LastTickAt = &now
		if err := s.store.UpdateMachine(ctx, nil, &m); err != nil && !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return nil
	}

	units, advanced := produceUnits(now, *m.LastTickAt, m.SecondsPerUnit, m.Remaining())
	if units == 0 {
		return nil
	}

	m.ProducedQty += units
	m.LastTickAt = &advanced
	completed := m.ProducedQty >= m.TargetQty
	if completed {
		m.Status = store.MachineStatusCompleted
		m.Locked = false
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.UpdateMachine(ctx, tx, &m); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// Another engine or a command got there first; the next
			// cycle sees the fresh state.
			return nil
		}
		return err
	}

	for u := int64(0); u < units; u++ {
		entry := &store.ProductionLog{
			MachineID:   m.ID,
			Location:    m.Location,
			WorkOrder:   m.WorkOrder,
			PipeSize:    m.PipeSize,
			ProducedQty: 1,
			Timestamp:   m.LastTickAt.Add(-time.Duration(float64(units-1-u) * m.SecondsPerUnit * float64(time.Second))),
		}
		if err := s.store.AppendProductionLog(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to append production log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	eventType := api.EventProgress
	if completed {
		eventType = api.EventCompleted
		// Terminal for this order. Inform the external source without
		// holding up the loop.
		go s.pusher.SetStatus(context.WithoutCancel(ctx), m.WorkOrder, "Completed")
	}
	s.hub.Broadcast(ctx, api.Event{
		Type:      eventType,
		MachineID: m.ID,
		Location:  m.Location,
		WorkOrder: m.WorkOrder,
		Status:    string(m.Status),
		Produced:  m.ProducedQty,
		Target:    m.TargetQty,
	})

	return nil
}
