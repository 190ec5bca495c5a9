package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prodplane/internal/store"
)

const machineColumns = `
	id, location, name, status, work_order, pipe_size, locked,
	target_qty, produced_qty, seconds_per_unit, last_tick_at,
	version, created_at, updated_at
`

// ListMachines returns the full fleet ordered by id.
func (s *Store) ListMachines(ctx context.Context) ([]store.Machine, error) {
	query := fmt.Sprintf(`SELECT %s FROM machines ORDER BY id ASC`, machineColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	return scanMachines(rows)
}

// ListMachinesByStatus returns machines with the given status, ordered by id.
func (s *Store) ListMachinesByStatus(ctx context.Context, status store.MachineStatus) ([]store.Machine, error) {
	query := fmt.Sprintf(`SELECT %s FROM machines WHERE status = $1 ORDER BY id ASC`, machineColumns)

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines by status: %w", err)
	}
	defer rows.Close()

	return scanMachines(rows)
}

// GetMachine returns a machine by (location, id).
func (s *Store) GetMachine(ctx context.Context, location string, id int64) (*store.Machine, error) {
	query := fmt.Sprintf(`SELECT %s FROM machines WHERE id = $1 AND location = $2`, machineColumns)

	m, err := scanMachine(s.db.QueryRowContext(ctx, query, id, location))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get machine %d: %w", id, err)
	}
	return m, nil
}

// UpdateMachine writes all mutable fields guarded by the version the caller
// read. The row's version is bumped on success. Zero rows affected means the
// version moved (or the machine never existed); both refuse the mutation.
func (s *Store) UpdateMachine(ctx context.Context, tx store.DBTransaction, m *store.Machine) error {
	executor := s.getExecutor(tx)

	query := `
		UPDATE machines
		SET name = $1, status = $2, work_order = $3, pipe_size = $4, locked = $5,
		    target_qty = $6, produced_qty = $7, seconds_per_unit = $8,
		    last_tick_at = $9, version = version + 1, updated_at = NOW()
		WHERE id = $10 AND version = $11
	`

	res, err := executor.ExecContext(ctx, query,
		m.Name, m.Status, m.WorkOrder, m.PipeSize, m.Locked,
		m.TargetQty, m.ProducedQty, m.SecondsPerUnit, m.LastTickAt,
		m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update machine %d: %w", m.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for machine %d: %w", m.ID, err)
	}
	if affected == 0 {
		return store.ErrVersionConflict
	}

	m.Version++
	return nil
}

// EnsureFleet seeds the fixed machine set if the fleet table is empty.
// Safe to call on every startup.
func (s *Store) EnsureFleet(ctx context.Context, machines []store.Machine) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM machines`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count machines: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range machines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO machines (id, location, name, status, pipe_size, seconds_per_unit)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.Location, m.Name, store.MachineStatusFree, m.PipeSize, m.SecondsPerUnit)
		if err != nil {
			return fmt.Errorf("failed to seed machine %d: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

func scanMachine(row *sql.Row) (*store.Machine, error) {
	var m store.Machine
	err := row.Scan(
		&m.ID, &m.Location, &m.Name, &m.Status, &m.WorkOrder, &m.PipeSize, &m.Locked,
		&m.TargetQty, &m.ProducedQty, &m.SecondsPerUnit, &m.LastTickAt,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMachines(rows *sql.Rows) ([]store.Machine, error) {
	var machines []store.Machine
	for rows.Next() {
		var m store.Machine
		if err := rows.Scan(
			&m.ID, &m.Location, &m.Name, &m.Status, &m.WorkOrder, &m.PipeSize, &m.Locked,
			&m.TargetQty, &m.ProducedQty, &m.SecondsPerUnit, &m.LastTickAt,
			&m.Version, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("machine rows error: %w", err)
	}
	return machines, nil
}
