// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// EventType classifies a state-change event on the observer stream.
type EventType string

const (
	EventAssignment EventType = "assignment"
	EventProgress   EventType = "progress"
	EventCompleted  EventType = "completed"
	EventAlert      EventType = "alert"
	EventCommand    EventType = "command"
)

// Event is the payload delivered to every subscribed observer and
// mirrored to the message bus when one is configured.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	MachineID int64     `json:"machine_id,omitempty"`
	Location  string    `json:"location,omitempty"`
	WorkOrder string    `json:"work_order,omitempty"`
	Status    string    `json:"status,omitempty"`
	Produced  int64     `json:"produced_qty,omitempty"`
	Target    int64     `json:"target_qty,omitempty"`
	Level     int       `json:"level,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MachineView is one machine in the dashboard response.
type MachineView struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Job     *JobView `json:"job,omitempty"`
	NextJob *JobView `json:"next_job,omitempty"`
}

// JobView describes the work order currently on (or queued for) a machine.
type JobView struct {
	WorkOrder        string   `json:"work_order"`
	PipeSize         string   `json:"pipe_size,omitempty"`
	TargetQty        int64    `json:"total_qty"`
	ProducedQty      int64    `json:"completed_qty"`
	RemainingQty     int64    `json:"remaining_qty"`
	RemainingSeconds *float64 `json:"remaining_time,omitempty"`
	ProgressPercent  float64  `json:"progress_percent"`
}

// LocationView groups machines for one physical location.
type LocationView struct {
	Name     string        `json:"name"`
	Machines []MachineView `json:"machines"`
}

// DashboardResponse is the full fleet view.
type DashboardResponse struct {
	Locations []LocationView `json:"locations"`
}

// CommandResponse reports whether a machine command was applied.
// Commands against unknown machines report Applied=false, never an error.
type CommandResponse struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// RenameMachineRequest is the body for machine rename commands.
type RenameMachineRequest struct {
	NewName string `json:"new_name"`
}

// ScheduleJobRequest creates an internally originated work order.
type ScheduleJobRequest struct {
	WorkOrder string `json:"work_order"`
	Location  string `json:"location"`
	PipeSize  string `json:"pipe_size,omitempty"`
	Qty       int64  `json:"qty"`
	Priority  int    `json:"priority,omitempty"`
}

// ScheduleJobResponse returns the id of the created job.
type ScheduleJobResponse struct {
	JobID int64 `json:"job_id"`
}

// ProductionLogEntry is one produced-unit record in report responses.
type ProductionLogEntry struct {
	MachineID   int64     `json:"machine_id"`
	Location    string    `json:"location"`
	WorkOrder   string    `json:"work_order"`
	PipeSize    string    `json:"pipe_size,omitempty"`
	ProducedQty int64     `json:"produced_qty"`
	Timestamp   time.Time `json:"timestamp"`
}

// GetLogsResponse is the response body for production log queries.
type GetLogsResponse struct {
	Logs []ProductionLogEntry `json:"logs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
