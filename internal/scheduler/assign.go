package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// AssignmentResult records one order-to-machine binding made in a pass.
type AssignmentResult struct {
	WorkOrder string
	MachineID int64
	Location  string
	// ScheduledJobID is non-zero when the demand was an internal job
	// rather than an external order.
	ScheduledJobID int64
}

// demand is the unified view of an external order or internal scheduled
// job competing for a machine.
type demand struct {
	workOrder string
	location  string
	pipeSize  string
	qty       int64
	produced  int64
	priority  int
	arrival   int
	jobID     int64 // 0 for external orders
}

// assignPass fetches pending external orders, loads unassigned internal
// jobs, and runs one assignment pass over the fleet.
func (s *Scheduler) assignPass(ctx context.Context) error {
	orders, err := s.source.FetchPending(ctx)
	if err != nil {
		// Degrade to an empty set: internal jobs can still be placed.
		s.logger.Warn("order fetch failed, treating as empty", "error", err)
		orders = nil
	}

	jobs, err := s.store.ListUnassignedScheduledJobs(ctx)
	if err != nil {
		s.logger.Warn("scheduled job listing failed, treating as empty", "error", err)
		jobs = nil
	}

	if len(orders) == 0 && len(jobs) == 0 {
		return nil
	}

	// Keep the local order table current before binding anything to it.
	for i := range orders {
		if err := s.store.UpsertOrder(ctx, nil, &orders[i]); err != nil {
			s.logger.Warn("order upsert failed", "order", orders[i].ID, "error", err)
		}
	}

	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot fleet: %w", err)
	}

	results := s.assign(ctx, orders, jobs, machines)
	for _, r := range results {
		s.hub.Broadcast(ctx, api.Event{
			Type:      api.EventAssignment,
			MachineID: r.MachineID,
			Location:  r.Location,
			WorkOrder: r.WorkOrder,
			Status:    string(store.MachineStatusPaused),
		})
	}
	return nil
}

// assign matches every unassigned demand against eligible machines, in
// priority order. Within one pass a machine receives at most one demand
// and a demand lands on at most one machine; both are enforced by the
// claimed sets before anything is committed.
func (s *Scheduler) assign(ctx context.Context, orders []store.Order, jobs []store.ScheduledJob, machines []store.Machine) []AssignmentResult {
	demands := make([]demand, 0, len(orders)+len(jobs))
	for i, o := range orders {
		demands = append(demands, demand{
			workOrder: o.ID,
			location:  o.Location,
			pipeSize:  o.PipeSize,
			qty:       o.Qty,
			produced:  o.ProducedQty,
			arrival:   i,
		})
	}
	for i, j := range jobs {
		demands = append(demands, demand{
			workOrder: j.WorkOrder,
			location:  j.Location,
			pipeSize:  j.PipeSize,
			qty:       j.Qty,
			produced:  j.ProducedQty,
			priority:  j.Priority,
			arrival:   len(orders) + i,
			jobID:     j.ID,
		})
	}
	sort.SliceStable(demands, func(a, b int) bool {
		if demands[a].priority != demands[b].priority {
			return demands[a].priority > demands[b].priority
		}
		return demands[a].arrival < demands[b].arrival
	})

	// Correlation ids already present on some machine: assigned in an
	// earlier pass, skipped unconditionally.
	assignedOrders := make(map[string]struct{})
	for _, m := range machines {
		if m.WorkOrder != "" {
			assignedOrders[m.WorkOrder] = struct{}{}
		}
	}

	claimedMachines := make(map[int64]struct{})
	var results []AssignmentResult

	for _, d := range demands {
		if d.workOrder == "" {
			continue
		}
		if _, taken := assignedOrders[d.workOrder]; taken {
			continue
		}

		for _, candidate := range eligibleMachines(machines, d, claimedMachines) {
			if s.commitAssignment(ctx, candidate, d) {
				claimedMachines[candidate.ID] = struct{}{}
				assignedOrders[d.workOrder] = struct{}{}
				results = append(results, AssignmentResult{
					WorkOrder:      d.workOrder,
					MachineID:      candidate.ID,
					Location:       d.location,
					ScheduledJobID: d.jobID,
				})
				break
			}
			// Lost the race on this machine; try the next candidate.
		}
	}

	return results
}

// eligibleMachines returns assignment candidates for a demand in
// preference order: machines whose pipe size matches the demand first,
// then the rest, each group in ascending id order. The input fleet is
// already id-sorted, so the ranking is deterministic.
func eligibleMachines(machines []store.Machine, d demand, claimed map[int64]struct{}) []store.Machine {
	var matched, fallback []store.Machine
	for _, m := range machines {
		if m.Location != d.location {
			continue
		}
		if !m.Status.Assignable() || m.Locked {
			continue
		}
		if _, taken := claimed[m.ID]; taken {
			continue
		}
		if d.pipeSize != "" && m.PipeSize == d.pipeSize {
			matched = append(matched, m)
		} else {
			fallback = append(fallback, m)
		}
	}
	return append(matched, fallback...)
}

// commitAssignment writes the binding atomically: the machine mutation
// and the demand bookkeeping either both commit or neither does.
func (s *Scheduler) commitAssignment(ctx context.Context, m store.Machine, d demand) bool {
	m.Status = store.MachineStatusPaused
	m.Locked = true
	m.WorkOrder = d.workOrder
	m.PipeSize = d.pipeSize
	m.TargetQty = d.qty
	m.ProducedQty = d.produced
	m.LastTickAt = nil

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		s.logger.Error("failed to begin assignment transaction", "error", err)
		return false
	}
	defer tx.Rollback()

	if err := s.store.UpdateMachine(ctx, tx, &m); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			s.logger.Error("assignment update failed", "machine", m.ID, "error", err)
		}
		return false
	}

	if d.jobID != 0 {
		err = s.store.MarkScheduledJobAssigned(ctx, tx, d.jobID, m.ID)
	} else {
		err = s.store.MarkOrderAssigned(ctx, tx, d.workOrder, m.ID)
	}
	if err != nil {
		// The demand was bound elsewhere between snapshot and commit;
		// refuse rather than double-assign.
		s.logger.Warn("demand already bound, refusing assignment", "work_order", d.workOrder, "error", err)
		return false
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("assignment commit failed", "machine", m.ID, "error", err)
		return false
	}

	s.logger.Info("assigned work order",
		"work_order", d.workOrder, "machine", m.ID, "location", d.location)
	return true
}
