package postgres

import (
	"context"
	"fmt"

	"prodplane/internal/store"
)

// UpsertOrder inserts or refreshes the local copy of an external work order.
// The external system owns the fields; conflicts overwrite everything except
// the local assignment, which only MarkOrderAssigned may set.
func (s *Store) UpsertOrder(ctx context.Context, tx store.DBTransaction, o *store.Order) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO orders (id, location, pipe_size, qty, produced_qty, status, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET location = EXCLUDED.location, pipe_size = EXCLUDED.pipe_size,
		    qty = EXCLUDED.qty, produced_qty = EXCLUDED.produced_qty,
		    status = EXCLUDED.status, fetched_at = NOW()
	`

	_, err := executor.ExecContext(ctx, query, o.ID, o.Location, o.PipeSize, o.Qty, o.ProducedQty, o.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.ID, err)
	}
	return nil
}

// MarkOrderAssigned records which machine holds the order.
func (s *Store) MarkOrderAssigned(ctx context.Context, tx store.DBTransaction, orderID string, machineID int64) error {
	executor := s.getExecutor(tx)

	res, err := executor.ExecContext(ctx, `
		UPDATE orders SET assigned_machine_id = $1 WHERE id = $2 AND assigned_machine_id IS NULL
	`, machineID, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order %s assigned: %w", orderID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either unknown or already assigned elsewhere; refuse rather
		// than overwrite.
		return store.ErrVersionConflict
	}
	return nil
}

// CreateScheduledJob inserts internally originated demand and returns its id.
func (s *Store) CreateScheduledJob(ctx context.Context, tx store.DBTransaction, j *store.ScheduledJob) (int64, error) {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO scheduled_jobs (work_order, location, pipe_size, qty, produced_qty, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := executor.QueryRowContext(ctx, query,
		j.WorkOrder, j.Location, j.PipeSize, j.Qty, j.ProducedQty, j.Priority,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create scheduled job %s: %w", j.WorkOrder, err)
	}
	return id, nil
}

// ListUnassignedScheduledJobs returns jobs not yet bound to a machine,
// highest priority first, then creation order.
func (s *Store) ListUnassignedScheduledJobs(ctx context.Context) ([]store.ScheduledJob, error) {
	query := `
		SELECT id, work_order, location, pipe_size, qty, produced_qty, priority, assigned_machine_id, created_at
		FROM scheduled_jobs
		WHERE assigned_machine_id IS NULL
		ORDER BY priority DESC, created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []store.ScheduledJob
	for rows.Next() {
		var j store.ScheduledJob
		if err := rows.Scan(
			&j.ID, &j.WorkOrder, &j.Location, &j.PipeSize, &j.Qty, &j.ProducedQty,
			&j.Priority, &j.AssignedMachineID, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduled job rows error: %w", err)
	}
	return jobs, nil
}

// MarkScheduledJobAssigned records the chosen machine for a job.
func (s *Store) MarkScheduledJobAssigned(ctx context.Context, tx store.DBTransaction, jobID, machineID int64) error {
	executor := s.getExecutor(tx)

	res, err := executor.ExecContext(ctx, `
		UPDATE scheduled_jobs SET assigned_machine_id = $1 WHERE id = $2 AND assigned_machine_id IS NULL
	`, machineID, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark scheduled job %d assigned: %w", jobID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrVersionConflict
	}
	return nil
}
