package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"prodplane/pkg/api"
)

// FleetClient handles API calls to the prodplane controller.
type FleetClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewFleetClient creates a new client with the given base URL.
func NewFleetClient(baseURL string) *FleetClient {
	return &FleetClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *FleetClient) get(endpoint string, result interface{}) error {
	httpReq, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *FleetClient) post(endpoint string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(http.MethodPost, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// GetDashboard sends GET /dashboard to retrieve the full fleet view.
func (c *FleetClient) GetDashboard() (*api.DashboardResponse, error) {
	var result api.DashboardResponse
	if err := c.get(fmt.Sprintf("%s/dashboard", c.BaseURL), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMachine sends GET /machines/{location}/{id}.
func (c *FleetClient) GetMachine(location string, id int64) (*api.MachineView, error) {
	var result api.MachineView
	endpoint := fmt.Sprintf("%s/machines/%s/%d", c.BaseURL, url.PathEscape(location), id)
	if err := c.get(endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MachineCommand sends POST /machines/{location}/{id}/{command}.
func (c *FleetClient) MachineCommand(location string, id int64, command string) (*api.CommandResponse, error) {
	var result api.CommandResponse
	endpoint := fmt.Sprintf("%s/machines/%s/%d/%s", c.BaseURL, url.PathEscape(location), id, command)
	if err := c.post(endpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RenameMachine sends POST /machines/{location}/{id}/rename.
func (c *FleetClient) RenameMachine(location string, id int64, newName string) (*api.CommandResponse, error) {
	var result api.CommandResponse
	endpoint := fmt.Sprintf("%s/machines/%s/%d/rename", c.BaseURL, url.PathEscape(location), id)
	if err := c.post(endpoint, api.RenameMachineRequest{NewName: newName}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScheduleJob sends POST /jobs to queue an internal work order.
func (c *FleetClient) ScheduleJob(req api.ScheduleJobRequest) (*api.ScheduleJobResponse, error) {
	var result api.ScheduleJobResponse
	if err := c.post(fmt.Sprintf("%s/jobs", c.BaseURL), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLogs sends GET /logs to retrieve production records.
func (c *FleetClient) GetLogs(location, since string, limit int) ([]api.ProductionLogEntry, error) {
	params := url.Values{}
	if location != "" {
		params.Set("location", location)
	}
	if since != "" {
		params.Set("since", since)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("%s/logs", c.BaseURL)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var result api.GetLogsResponse
	if err := c.get(endpoint, &result); err != nil {
		return nil, err
	}
	return result.Logs, nil
}
