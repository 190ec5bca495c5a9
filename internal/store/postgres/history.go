package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"prodplane/internal/store"
)

// AppendProductionLog records one produced unit.
func (s *Store) AppendProductionLog(ctx context.Context, tx store.DBTransaction, entry *store.ProductionLog) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO production_logs (machine_id, location, work_order, pipe_size, produced_qty, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := executor.ExecContext(ctx, query,
		entry.MachineID, entry.Location, entry.WorkOrder, entry.PipeSize, entry.ProducedQty, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append production log for machine %d: %w", entry.MachineID, err)
	}
	return nil
}

// ListProductionLogs returns recent log rows, newest first, narrowed by filter.
func (s *Store) ListProductionLogs(ctx context.Context, filter store.LogFilter) ([]store.ProductionLog, error) {
	var conditions []string
	var args []interface{}

	if filter.Location != "" {
		args = append(args, filter.Location)
		conditions = append(conditions, "location = $"+strconv.Itoa(len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, "timestamp >= $"+strconv.Itoa(len(args)))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		conditions = append(conditions, "timestamp <= $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, machine_id, location, work_order, pipe_size, produced_qty, timestamp
		FROM production_logs
		%s
		ORDER BY timestamp DESC
		LIMIT $%d
	`, whereClause, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production logs: %w", err)
	}
	defer rows.Close()

	var logs []store.ProductionLog
	for rows.Next() {
		var l store.ProductionLog
		if err := rows.Scan(&l.ID, &l.MachineID, &l.Location, &l.WorkOrder, &l.PipeSize, &l.ProducedQty, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan production log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("production log rows error: %w", err)
	}
	return logs, nil
}

// InsertSnapshot appends one point-in-time machine record.
func (s *Store) InsertSnapshot(ctx context.Context, snapshot *store.ProductionSnapshot) error {
	query := `
		INSERT INTO production_snapshots
			(machine_id, location, work_order, pipe_size, target_qty, produced_qty, remaining_qty, status, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		snapshot.MachineID, snapshot.Location, snapshot.WorkOrder, snapshot.PipeSize,
		snapshot.TargetQty, snapshot.ProducedQty, snapshot.RemainingQty, snapshot.Status, snapshot.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot for machine %d: %w", snapshot.MachineID, err)
	}
	return nil
}
