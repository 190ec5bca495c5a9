package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prodplane/pkg/api"

	"github.com/spf13/viper"
)

func TestDashboardCommand_Success(t *testing.T) {
	resetViper()

	remaining := 120.0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dashboard" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		resp := api.DashboardResponse{
			Locations: []api.LocationView{
				{
					Name: "Modan",
					Machines: []api.MachineView{
						{
							ID: 1, Name: "Machine 1", Status: "running",
							Job: &api.JobView{
								WorkOrder: "WO-1", TargetQty: 10, ProducedQty: 4,
								RemainingQty: 6, ProgressPercent: 40,
								RemainingSeconds: &remaining,
							},
						},
						{ID: 2, Name: "Machine 2", Status: "free"},
					},
				},
			},
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"dashboard"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Modan") {
		t.Errorf("expected location header, got: %s", output)
	}
	if !strings.Contains(output, "WO-1") {
		t.Errorf("expected work order, got: %s", output)
	}
	if !strings.Contains(output, "4/10") {
		t.Errorf("expected progress counters, got: %s", output)
	}
	if !strings.Contains(output, "2m 0s") {
		t.Errorf("expected remaining time, got: %s", output)
	}
}

func TestDashboardCommand_ServerUnreachable(t *testing.T) {
	resetViper()
	viper.Set("url", "http://127.0.0.1:1")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"dashboard"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Failed to load dashboard") {
		t.Errorf("expected failure message, got: %s", stdout.String())
	}
}
