package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// fakeStore is an in-memory Store implementation for engine tests. It
// honors version-guarded updates and restores state when a transaction
// rolls back, so the engines see the same contract as the real store.
type fakeStore struct {
	mu        sync.Mutex
	machines  map[int64]*store.Machine
	orders    map[string]*store.Order
	jobs      map[int64]*store.ScheduledJob
	logs      []store.ProductionLog
	snapshots []store.ProductionSnapshot

	nextJobID int64

	// conflictsLeft injects that many version conflicts for a machine id
	// before updates succeed again.
	conflictsLeft map[int64]int

	// failSnapshotFor makes InsertSnapshot fail for the given machine id.
	failSnapshotFor map[int64]bool
}

func newFakeStore(machines ...store.Machine) *fakeStore {
	s := &fakeStore{
		machines:        make(map[int64]*store.Machine),
		orders:          make(map[string]*store.Order),
		jobs:            make(map[int64]*store.ScheduledJob),
		conflictsLeft:   make(map[int64]int),
		failSnapshotFor: make(map[int64]bool),
	}
	for i := range machines {
		m := machines[i]
		s.machines[m.ID] = &m
	}
	return s
}

func (s *fakeStore) machine(id int64) store.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.machines[id]
}

func (s *fakeStore) setMachine(m store.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[m.ID] = &m
}

func (s *fakeStore) ListMachines(ctx context.Context) ([]store.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		out = append(out, *m)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *fakeStore) ListMachinesByStatus(ctx context.Context, status store.MachineStatus) ([]store.Machine, error) {
	all, _ := s.ListMachines(ctx)
	var out []store.Machine
	for _, m := range all {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) GetMachine(ctx context.Context, location string, id int64) (*store.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[id]
	if !ok || m.Location != location {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *fakeStore) UpdateMachine(ctx context.Context, tx store.DBTransaction, m *store.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.conflictsLeft[m.ID]; n > 0 {
		s.conflictsLeft[m.ID] = n - 1
		return store.ErrVersionConflict
	}
	cur, ok := s.machines[m.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != m.Version {
		return store.ErrVersionConflict
	}
	m.Version++
	cp := *m
	s.machines[m.ID] = &cp
	return nil
}

func (s *fakeStore) EnsureFleet(ctx context.Context, machines []store.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.machines) > 0 {
		return nil
	}
	for i := range machines {
		m := machines[i]
		s.machines[m.ID] = &m
	}
	return nil
}

func (s *fakeStore) UpsertOrder(ctx context.Context, tx store.DBTransaction, o *store.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.orders[o.ID]; ok {
		assigned := cur.AssignedMachineID
		cp := *o
		cp.AssignedMachineID = assigned
		s.orders[o.ID] = &cp
		return nil
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *fakeStore) MarkOrderAssigned(ctx context.Context, tx store.DBTransaction, orderID string, machineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	if o.AssignedMachineID != nil {
		return store.ErrVersionConflict
	}
	o.AssignedMachineID = &machineID
	return nil
}

func (s *fakeStore) CreateScheduledJob(ctx context.Context, tx store.DBTransaction, j *store.ScheduledJob) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJobID++
	j.ID = s.nextJobID
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return j.ID, nil
}

func (s *fakeStore) ListUnassignedScheduledJobs(ctx context.Context) ([]store.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ScheduledJob
	for _, j := range s.jobs {
		if j.AssignedMachineID == nil {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Priority != out[b].Priority {
			return out[a].Priority > out[b].Priority
		}
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (s *fakeStore) MarkScheduledJobAssigned(ctx context.Context, tx store.DBTransaction, jobID, machineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if j.AssignedMachineID != nil {
		return store.ErrVersionConflict
	}
	j.AssignedMachineID = &machineID
	return nil
}

func (s *fakeStore) AppendProductionLog(ctx context.Context, tx store.DBTransaction, entry *store.ProductionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.logs) + 1)
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) ListProductionLogs(ctx context.Context, filter store.LogFilter) ([]store.ProductionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ProductionLog
	for _, l := range s.logs {
		if filter.Location != "" && l.Location != filter.Location {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeStore) InsertSnapshot(ctx context.Context, snapshot *store.ProductionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSnapshotFor[snapshot.MachineID] {
		return errors.New("insert failed")
	}
	s.snapshots = append(s.snapshots, *snapshot)
	return nil
}

// BeginTx snapshots the mutable state so Rollback can restore it when a
// transaction aborts after a partial write.
func (s *fakeStore) BeginTx(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := txSnapshot{
		machines: make(map[int64]store.Machine, len(s.machines)),
		orders:   make(map[string]store.Order, len(s.orders)),
		jobs:     make(map[int64]store.ScheduledJob, len(s.jobs)),
		logCount: len(s.logs),
	}
	for id, m := range s.machines {
		saved.machines[id] = *m
	}
	for id, o := range s.orders {
		saved.orders[id] = *o
	}
	for id, j := range s.jobs {
		saved.jobs[id] = *j
	}
	return &fakeTx{store: s, saved: saved}, nil
}

type txSnapshot struct {
	machines map[int64]store.Machine
	orders   map[string]store.Order
	jobs     map[int64]store.ScheduledJob
	logCount int
}

type fakeTx struct {
	store     *fakeStore
	saved     txSnapshot
	committed bool
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.committed {
		return nil
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines = make(map[int64]*store.Machine, len(t.saved.machines))
	for id, m := range t.saved.machines {
		cp := m
		s.machines[id] = &cp
	}
	s.orders = make(map[string]*store.Order, len(t.saved.orders))
	for id, o := range t.saved.orders {
		cp := o
		s.orders[id] = &cp
	}
	s.jobs = make(map[int64]*store.ScheduledJob, len(t.saved.jobs))
	for id, j := range t.saved.jobs {
		cp := j
		s.jobs[id] = &cp
	}
	s.logs = s.logs[:t.saved.logCount]
	return nil
}

// fakeSource serves a fixed set of pending orders, or an error.
type fakeSource struct {
	orders []store.Order
	err    error
}

func (f *fakeSource) FetchPending(ctx context.Context) ([]store.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]store.Order, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

type statusPush struct {
	orderID string
	status  string
}

// recordingPusher collects status pushes on a channel since completion
// pushes happen on their own goroutine.
type recordingPusher struct {
	pushes chan statusPush
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{pushes: make(chan statusPush, 16)}
}

func (p *recordingPusher) SetStatus(ctx context.Context, orderID, status string) {
	p.pushes <- statusPush{orderID: orderID, status: status}
}

func (p *recordingPusher) waitForPush(timeout time.Duration) (statusPush, bool) {
	select {
	case push := <-p.pushes:
		return push, true
	case <-time.After(timeout):
		return statusPush{}, false
	}
}

// recordingHub captures broadcast events in order.
type recordingHub struct {
	mu     sync.Mutex
	events []api.Event
}

func (h *recordingHub) Broadcast(ctx context.Context, event api.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) all() []api.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]api.Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *recordingHub) byType(t api.EventType) []api.Event {
	var out []api.Event
	for _, e := range h.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type testFixture struct {
	store  *fakeStore
	source *fakeSource
	pusher *recordingPusher
	hub    *recordingHub
	sched  *Scheduler
}

func newFixture(machines ...store.Machine) *testFixture {
	f := &testFixture{
		store:  newFakeStore(machines...),
		source: &fakeSource{},
		pusher: newRecordingPusher(),
		hub:    &recordingHub{},
	}
	f.sched = New(f.store, f.source, f.pusher, f.hub, testLogger(), Config{})
	return f
}

func testMachine(id int64, location string, status store.MachineStatus) store.Machine {
	return store.Machine{
		ID:             id,
		Location:       location,
		Name:           fmt.Sprintf("machine-%d", id),
		Status:         status,
		SecondsPerUnit: 20,
		Version:        1,
	}
}
