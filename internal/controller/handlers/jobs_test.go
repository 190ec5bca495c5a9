package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prodplane/pkg/api"
)

func TestScheduleJob(t *testing.T) {
	validReq := api.ScheduleJobRequest{
		WorkOrder: "JOB-1",
		Location:  "Modan",
		PipeSize:  "160",
		Qty:       25,
		Priority:  3,
	}
	validBody, _ := json.Marshal(validReq)

	tests := []struct {
		name           string
		body           []byte
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Success",
			body:           validBody,
			mockSetup:      func(m *mockStore) { m.createJobID = 42 },
			expectedStatus: http.StatusOK,
			expectedInBody: `"job_id":42`,
		},
		{
			name:           "Invalid JSON",
			body:           []byte(`{invalid-json}`),
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid request body",
		},
		{
			name:           "Missing Required Fields",
			body:           []byte(`{"work_order": "", "location": ""}`),
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "WorkOrder and Location are required",
		},
		{
			name:           "Non-Positive Quantity",
			body:           []byte(`{"work_order": "JOB-1", "location": "Modan", "qty": 0}`),
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Qty must be positive",
		},
		{
			name: "Database Transaction Error",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.beginTxErr = errors.New("db down")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Internal database error",
		},
		{
			name: "Insert Error",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.createJobErr = errors.New("constraint violation")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to create job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockStore{}
			tt.mockSetup(ms)
			h := newTestHandlers(ms, &mockCommander{}, nil)

			r := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ScheduleJob(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
			if !strings.Contains(w.Body.String(), tt.expectedInBody) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestScheduleJobPassesFields(t *testing.T) {
	body, _ := json.Marshal(api.ScheduleJobRequest{
		WorkOrder: "JOB-9", Location: "Al-Khraj", PipeSize: "200", Qty: 8, Priority: 5,
	})
	ms := &mockStore{createJobID: 9}
	h := newTestHandlers(ms, &mockCommander{}, nil)

	w := httptest.NewRecorder()
	h.ScheduleJob(w, httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	j := ms.capturedJob
	if j == nil {
		t.Fatal("no job reached the store")
	}
	if j.WorkOrder != "JOB-9" || j.Location != "Al-Khraj" || j.Qty != 8 || j.Priority != 5 {
		t.Errorf("unexpected job: %+v", j)
	}
}
