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

func TestMachineStartCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/machines/Modan/3/start" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.CommandResponse{Applied: true})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"machine", "start", "Modan", "3"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "applied") {
		t.Errorf("expected applied confirmation, got: %s", output)
	}
}

func TestMachineStartCommand_Refused(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.CommandResponse{
			Applied: false,
			Reason:  "machine has no work order",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"machine", "start", "Modan", "3"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "not applied") || !strings.Contains(output, "machine has no work order") {
		t.Errorf("expected refusal with reason, got: %s", output)
	}
}

func TestMachineRenameCommand_SendsBody(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/machines/Baldeya/7/rename" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req api.RenameMachineRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.NewName != "extruder-east" {
			t.Errorf("expected new name in body, got %q", req.NewName)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.CommandResponse{Applied: true})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"machine", "rename", "Baldeya", "7", "extruder-east"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "applied") {
		t.Errorf("expected applied confirmation, got: %s", stdout.String())
	}
}

func TestMachineCommand_InvalidID(t *testing.T) {
	resetViper()
	viper.Set("url", "http://localhost:6161")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"machine", "stop", "Modan", "not-a-number"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Invalid machine id") {
		t.Errorf("expected invalid id message, got: %s", stdout.String())
	}
}

func TestMachineCommand_ServerError(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"machine", "pause", "Modan", "1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Failed to send command") {
		t.Errorf("expected failure message, got: %s", stdout.String())
	}
}
