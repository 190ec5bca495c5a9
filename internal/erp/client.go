// Package erp is the adapter for the external order-management system.
// It is the only component that talks to the ERP API; everything else
// consumes the normalized store.Order values it produces.
package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prodplane/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// External status strings as the ERP reports them.
const (
	extStatusNotStarted = "Not Started"
	extStatusInProcess  = "In Process"
	extStatusCompleted  = "Completed"
)

// Config holds connection settings for the ERP API.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration // request bound; expired fetches degrade to empty
}

// Client fetches pending work orders and pushes status changes back.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	// pushLimiter throttles fire-and-forget status push-backs so a burst
	// of completions cannot hammer the ERP.
	pushLimiter *rate.Limiter
}

// NewClient creates a new ERP client. A zero timeout defaults to 20s.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:         cfg,
		logger:      logger,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		pushLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Configured reports whether credentials are present. An unconfigured
// client fetches nothing and pushes nothing; the scheduler keeps running.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// workOrderRecord mirrors the ERP's wire format. Missing fields are
// tolerated; an absent pipe size means the order matches any machine.
type workOrderRecord struct {
	Name      string  `json:"name"`
	Qty       int64   `json:"qty"`
	Produced  int64   `json:"produced_qty"`
	Status    string  `json:"status"`
	MachineID *int64  `json:"custom_machine_id"`
	PipeSize  string  `json:"custom_pipe_size"`
	Location  string  `json:"custom_location"`
}

type workOrderList struct {
	Data []workOrderRecord `json:"data"`
}

// FetchPending performs one bounded-time fetch of active work orders and
// returns the pending subset. Orders the ERP already marks "In Process"
// are excluded: they must never be reassigned locally. Transport errors
// surface to the caller, which treats them the same as an empty result.
func (c *Client) FetchPending(ctx context.Context) ([]store.Order, error) {
	if !c.Configured() {
		return nil, nil
	}

	tracer := otel.Tracer("erp-client")
	ctx, span := tracer.Start(ctx, "fetch_pending_orders")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/resource/Work Order", c.cfg.BaseURL)
	params := url.Values{}
	params.Set("fields", `["name","qty","produced_qty","status","custom_machine_id","custom_pipe_size","custom_location"]`)
	params.Set("filters", `[["status","in",["Not Started","In Process"]]]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("work order fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("work order fetch returned status %d: %s", resp.StatusCode, body)
	}

	var list workOrderList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse work order response: %w", err)
	}

	var pending []store.Order
	for _, rec := range list.Data {
		if rec.Name == "" || rec.Location == "" {
			continue
		}
		status := normalizeStatus(rec.Status)
		if status != store.OrderStatusPending {
			continue
		}
		// ERP-side machine binding means the order is already taken.
		if rec.MachineID != nil {
			continue
		}
		pending = append(pending, store.Order{
			ID:          rec.Name,
			Location:    rec.Location,
			PipeSize:    rec.PipeSize,
			Qty:         rec.Qty,
			ProducedQty: rec.Produced,
			Status:      status,
		})
	}

	span.SetAttributes(
		attribute.Int("orders.fetched", len(list.Data)),
		attribute.Int("orders.pending", len(pending)),
	)

	return pending, nil
}

// SetStatus informs the ERP of a local status change. Fire-and-forget:
// failures are logged and never retried, and the call never blocks the
// tick loop beyond the request timeout. Calls beyond the push rate are
// dropped.
func (c *Client) SetStatus(ctx context.Context, orderID, status string) {
	if !c.Configured() || orderID == "" {
		return
	}
	if !c.pushLimiter.Allow() {
		c.logger.Warn("erp status push throttled", "order", orderID, "status", status)
		return
	}

	endpoint := fmt.Sprintf("%s/api/resource/Work Order/%s", c.cfg.BaseURL, url.PathEscape(orderID))
	body, _ := json.Marshal(map[string]string{"status": status})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, strings.NewReader(string(body)))
	if err != nil {
		c.logger.Error("erp status push failed to build request", "order", orderID, "error", err)
		return
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("erp status push failed", "order", orderID, "status", status, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Error("erp status push rejected", "order", orderID, "status", status, "code", resp.StatusCode)
		return
	}

	c.logger.Info("erp status pushed", "order", orderID, "status", status)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.cfg.APIKey, c.cfg.APISecret))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}

// normalizeStatus maps external status strings to the local three-value enum.
// Unknown strings are treated as in-progress: never assign on uncertain input.
func normalizeStatus(s string) store.OrderStatus {
	switch s {
	case extStatusNotStarted:
		return store.OrderStatusPending
	case extStatusCompleted:
		return store.OrderStatusCompleted
	case extStatusInProcess:
		return store.OrderStatusInProgress
	default:
		return store.OrderStatusInProgress
	}
}
