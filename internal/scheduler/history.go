package scheduler

import (
	"context"
	"fmt"
	"time"

	"prodplane/internal/store"
)

// snapshotPass appends one immutable snapshot per machine, changed or
// not, so timelines can be reconstructed later. A failed insert is
// logged and the remaining machines are still recorded.
func (s *Scheduler) snapshotPass(ctx context.Context) error {
	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot fleet: %w", err)
	}

	now := time.Now().UTC()
	for _, m := range machines {
		snap := &store.ProductionSnapshot{
			MachineID:    m.ID,
			Location:     m.Location,
			WorkOrder:    m.WorkOrder,
			PipeSize:     m.PipeSize,
			TargetQty:    m.TargetQty,
			ProducedQty:  m.ProducedQty,
			RemainingQty: m.Remaining(),
			Status:       m.Status,
			Timestamp:    now,
		}
		if err := s.store.InsertSnapshot(ctx, snap); err != nil {
			s.logger.Error("snapshot insert failed", "machine", m.ID, "error", err)
		}
	}
	return nil
}
