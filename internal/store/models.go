// Package store contains the database layer for prodplane.
package store

import "time"

// MachineStatus represents the state of a production machine.
type MachineStatus string

const (
	MachineStatusFree      MachineStatus = "free"
	MachineStatusPaused    MachineStatus = "paused"
	MachineStatusRunning   MachineStatus = "running"
	MachineStatusStopped   MachineStatus = "stopped"
	MachineStatusCompleted MachineStatus = "completed"
)

// Assignable reports whether a machine in this status may receive a new
// work order. Running and completed machines are never reassigned.
func (s MachineStatus) Assignable() bool {
	return s == MachineStatusFree || s == MachineStatusPaused || s == MachineStatusStopped
}

// Machine represents a physical production unit at one location.
// The fleet is fixed at provisioning time; machines are never deleted.
type Machine struct {
	ID       int64
	Location string
	Name     string
	Status   MachineStatus

	// WorkOrder is the external correlation id of the assigned order,
	// empty when the machine is idle. Locked is true iff an external
	// correlation is active; it guards against reassignment.
	WorkOrder string
	PipeSize  string
	Locked    bool

	TargetQty      int64
	ProducedQty    int64
	SecondsPerUnit float64 // production rate, seconds per produced unit
	LastTickAt     *time.Time

	// Version is bumped on every committed mutation. Updates carry the
	// version they read; a stale version fails with ErrVersionConflict.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assigned reports whether the machine currently holds a work order.
func (m *Machine) Assigned() bool {
	return m.WorkOrder != ""
}

// Remaining returns the quantity still to produce, never negative.
func (m *Machine) Remaining() int64 {
	if m.TargetQty <= m.ProducedQty {
		return 0
	}
	return m.TargetQty - m.ProducedQty
}

// Progress returns the completion percentage, 0 when no target is set.
func (m *Machine) Progress() float64 {
	if m.TargetQty <= 0 {
		return 0
	}
	return float64(m.ProducedQty) / float64(m.TargetQty) * 100
}

// OrderStatus is the normalized three-value status of an external work order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Order is the local representation of an externally-sourced work order.
// The ID is the external correlation id and is unique across the system.
type Order struct {
	ID                string
	Location          string
	PipeSize          string // empty means any machine attribute matches
	Qty               int64
	ProducedQty       int64
	Status            OrderStatus
	AssignedMachineID *int64
	FetchedAt         time.Time
}

// ScheduledJob is internally originated demand. It competes for the same
// machine pool as external orders, with an explicit priority.
type ScheduledJob struct {
	ID                int64
	WorkOrder         string
	Location          string
	PipeSize          string
	Qty               int64
	ProducedQty       int64
	Priority          int
	AssignedMachineID *int64
	CreatedAt         time.Time
}

// ProductionLog records one produced unit. One row is appended per unit.
type ProductionLog struct {
	ID          int64
	MachineID   int64
	Location    string
	WorkOrder   string
	PipeSize    string
	ProducedQty int64
	Timestamp   time.Time
}

// ProductionSnapshot is an append-only point-in-time copy of a machine's
// state, written by the history recorder regardless of whether anything
// changed. Used to reconstruct timelines.
type ProductionSnapshot struct {
	ID           int64
	MachineID    int64
	Location     string
	WorkOrder    string
	PipeSize     string
	TargetQty    int64
	ProducedQty  int64
	RemainingQty int64
	Status       MachineStatus
	Timestamp    time.Time
}
