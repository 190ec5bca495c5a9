package handlers

import (
	"context"
	"database/sql"
	"prodplane/internal/broadcast"
	"prodplane/internal/scheduler"
	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// Mock transaction
type mockTx struct{}

func (m *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (m *mockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (m *mockTx) Commit() error { return nil }

func (m *mockTx) Rollback() error { return nil }

// Mock Store
type mockStore struct {
	// Machine hooks
	listMachinesResp []store.Machine
	listMachinesErr  error
	getMachineResp   *store.Machine
	getMachineErr    error

	// Demand hooks
	listJobsResp  []store.ScheduledJob
	listJobsErr   error
	createJobErr  error
	createJobID   int64
	capturedJob   *store.ScheduledJob

	// History hooks
	logsResp       []store.ProductionLog
	logsErr        error
	capturedFilter store.LogFilter

	beginTxErr error
	pingErr    error
}

func (m *mockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	if m.beginTxErr != nil {
		return nil, m.beginTxErr
	}
	return &mockTx{}, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) ListMachines(ctx context.Context) ([]store.Machine, error) {
	return m.listMachinesResp, m.listMachinesErr
}

func (m *mockStore) ListMachinesByStatus(ctx context.Context, status store.MachineStatus) ([]store.Machine, error) {
	return nil, nil // Engines only, not used by handlers
}

func (m *mockStore) GetMachine(ctx context.Context, location string, id int64) (*store.Machine, error) {
	return m.getMachineResp, m.getMachineErr
}

func (m *mockStore) UpdateMachine(ctx context.Context, tx store.DBTransaction, machine *store.Machine) error {
	return nil // Mutations go through the Commander, not Handlers
}

func (m *mockStore) EnsureFleet(ctx context.Context, machines []store.Machine) error {
	return nil
}

func (m *mockStore) UpsertOrder(ctx context.Context, tx store.DBTransaction, o *store.Order) error {
	return nil
}

func (m *mockStore) MarkOrderAssigned(ctx context.Context, tx store.DBTransaction, orderID string, machineID int64) error {
	return nil
}

func (m *mockStore) CreateScheduledJob(ctx context.Context, tx store.DBTransaction, j *store.ScheduledJob) (int64, error) {
	m.capturedJob = j
	return m.createJobID, m.createJobErr
}

func (m *mockStore) ListUnassignedScheduledJobs(ctx context.Context) ([]store.ScheduledJob, error) {
	return m.listJobsResp, m.listJobsErr
}

func (m *mockStore) MarkScheduledJobAssigned(ctx context.Context, tx store.DBTransaction, jobID, machineID int64) error {
	return nil
}

func (m *mockStore) AppendProductionLog(ctx context.Context, tx store.DBTransaction, entry *store.ProductionLog) error {
	return nil
}

func (m *mockStore) ListProductionLogs(ctx context.Context, filter store.LogFilter) ([]store.ProductionLog, error) {
	m.capturedFilter = filter
	return m.logsResp, m.logsErr
}

func (m *mockStore) InsertSnapshot(ctx context.Context, snapshot *store.ProductionSnapshot) error {
	return nil
}

// Mock Commander
type mockCommander struct {
	resp scheduler.CommandResult
	err  error

	capturedLocation string
	capturedID       int64
	capturedName     string
	capturedCommand  string
}

func (m *mockCommander) StartMachine(ctx context.Context, location string, id int64) (scheduler.CommandResult, error) {
	m.capturedLocation, m.capturedID, m.capturedCommand = location, id, "start"
	return m.resp, m.err
}

func (m *mockCommander) PauseMachine(ctx context.Context, location string, id int64) (scheduler.CommandResult, error) {
	m.capturedLocation, m.capturedID, m.capturedCommand = location, id, "pause"
	return m.resp, m.err
}

func (m *mockCommander) StopMachine(ctx context.Context, location string, id int64) (scheduler.CommandResult, error) {
	m.capturedLocation, m.capturedID, m.capturedCommand = location, id, "stop"
	return m.resp, m.err
}

func (m *mockCommander) RenameMachine(ctx context.Context, location string, id int64, newName string) (scheduler.CommandResult, error) {
	m.capturedLocation, m.capturedID, m.capturedName, m.capturedCommand = location, id, newName, "rename"
	return m.resp, m.err
}

// Mock EventSource
type mockEvents struct {
	sub          *broadcast.Subscriber
	unsubscribed bool
}

func newMockEvents() *mockEvents {
	return &mockEvents{sub: &broadcast.Subscriber{C: make(chan api.Event, 16)}}
}

func (m *mockEvents) Subscribe() *broadcast.Subscriber {
	return m.sub
}

func (m *mockEvents) Unsubscribe(sub *broadcast.Subscriber) {
	m.unsubscribed = true
}

func newTestHandlers(s *mockStore, c *mockCommander, e EventSource) *Handlers {
	if e == nil {
		e = newMockEvents()
	}
	return New(s, c, e)
}
