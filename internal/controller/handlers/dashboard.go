package handlers

import (
	"net/http"
	"sort"

	"prodplane/internal/store"
	"prodplane/pkg/api"
)

// GetDashboard handles GET /dashboard.
// It returns the whole fleet grouped by location, with current progress
// and a preview of the next queued job for idle machines.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	machines, err := h.store.ListMachines(ctx)
	if err != nil {
		h.httpError(w, "Failed to load fleet", http.StatusInternalServerError)
		return
	}

	jobs, err := h.store.ListUnassignedScheduledJobs(ctx)
	if err != nil {
		h.httpError(w, "Failed to load queued jobs", http.StatusInternalServerError)
		return
	}

	// Queued jobs per location, already in priority order.
	queues := make(map[string][]store.ScheduledJob)
	for _, j := range jobs {
		queues[j.Location] = append(queues[j.Location], j)
	}

	byLocation := make(map[string][]api.MachineView)
	for _, m := range machines {
		view := machineView(m)
		if !m.Assigned() {
			if queue := queues[m.Location]; len(queue) > 0 {
				view.NextJob = jobPreview(queue[0])
				queues[m.Location] = queue[1:]
			}
		}
		byLocation[m.Location] = append(byLocation[m.Location], view)
	}

	names := make([]string, 0, len(byLocation))
	for name := range byLocation {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := api.DashboardResponse{Locations: make([]api.LocationView, 0, len(names))}
	for _, name := range names {
		resp.Locations = append(resp.Locations, api.LocationView{
			Name:     name,
			Machines: byLocation[name],
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

func machineView(m store.Machine) api.MachineView {
	view := api.MachineView{
		ID:     m.ID,
		Name:   m.Name,
		Status: string(m.Status),
	}
	if m.Assigned() {
		job := &api.JobView{
			WorkOrder:       m.WorkOrder,
			PipeSize:        m.PipeSize,
			TargetQty:       m.TargetQty,
			ProducedQty:     m.ProducedQty,
			RemainingQty:    m.Remaining(),
			ProgressPercent: m.Progress(),
		}
		if m.Status == store.MachineStatusRunning && m.SecondsPerUnit > 0 {
			remaining := float64(m.Remaining()) * m.SecondsPerUnit
			job.RemainingSeconds = &remaining
		}
		view.Job = job
	}
	return view
}

func jobPreview(j store.ScheduledJob) *api.JobView {
	return &api.JobView{
		WorkOrder:    j.WorkOrder,
		PipeSize:     j.PipeSize,
		TargetQty:    j.Qty,
		ProducedQty:  j.ProducedQty,
		RemainingQty: j.Qty - j.ProducedQty,
	}
}
