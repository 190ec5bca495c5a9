package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by compare-and-mutate operations when
	// the record changed since the caller read it. Callers skip and retry
	// on the next cycle; the conflict is never surfaced to a user.
	ErrVersionConflict = errors.New("version conflict")
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// MachineStore is the canonical view of the fleet. All engines mutate
// machines through UpdateMachine; no engine keeps a private mutable copy
// across a suspension point.
type MachineStore interface {
	// ListMachines returns the full fleet as of a single read.
	ListMachines(ctx context.Context) ([]Machine, error)

	// ListMachinesByStatus returns machines with the given status.
	ListMachinesByStatus(ctx context.Context, status MachineStatus) ([]Machine, error)

	// GetMachine returns a machine by (location, id).
	GetMachine(ctx context.Context, location string, id int64) (*Machine, error)

	// UpdateMachine writes all mutable machine fields guarded by the
	// version the caller read. Returns ErrVersionConflict when the row
	// changed underneath, ErrNotFound when no such machine exists.
	UpdateMachine(ctx context.Context, tx DBTransaction, m *Machine) error

	// EnsureFleet seeds the fixed machine set if the fleet is empty.
	EnsureFleet(ctx context.Context, machines []Machine) error
}

// DemandStore handles local bookkeeping for orders and scheduled jobs.
type DemandStore interface {
	// UpsertOrder inserts or refreshes the local copy of an external order.
	UpsertOrder(ctx context.Context, tx DBTransaction, o *Order) error

	// MarkOrderAssigned records which machine holds the order.
	MarkOrderAssigned(ctx context.Context, tx DBTransaction, orderID string, machineID int64) error

	// CreateScheduledJob inserts internally originated demand.
	CreateScheduledJob(ctx context.Context, tx DBTransaction, j *ScheduledJob) (int64, error)

	// ListUnassignedScheduledJobs returns jobs not yet bound to a machine,
	// highest priority first, then creation order.
	ListUnassignedScheduledJobs(ctx context.Context) ([]ScheduledJob, error)

	// MarkScheduledJobAssigned records the chosen machine for a job.
	MarkScheduledJobAssigned(ctx context.Context, tx DBTransaction, jobID, machineID int64) error
}

// HistoryStore appends immutable audit records. Writers tolerate failures:
// a lost snapshot or log row must not stall the loops that produce them.
type HistoryStore interface {
	// AppendProductionLog records one produced unit.
	AppendProductionLog(ctx context.Context, tx DBTransaction, entry *ProductionLog) error

	// ListProductionLogs returns recent log rows, optionally filtered.
	ListProductionLogs(ctx context.Context, filter LogFilter) ([]ProductionLog, error)

	// InsertSnapshot appends one point-in-time machine record.
	InsertSnapshot(ctx context.Context, snapshot *ProductionSnapshot) error
}

// LogFilter narrows production log queries for reporting.
type LogFilter struct {
	Location string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}
