// Package client is a typed HTTP client for the irrigation server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/plantCo2/water-device/entities"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Field      string `json:"field"`
	Retriable  bool   `json:"retriable"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Health is the body of GET /health.
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// PollResponse mirrors what the device receives. Command fields are nil
// when nothing was pending.
type PollResponse struct {
	TimerEnabled     bool                  `json:"timer_enabled"`
	TimerHour        int                   `json:"timer_hour"`
	TimerMinute      int                   `json:"timer_minute"`
	Threshold        int                   `json:"threshold"`
	WateringDuration int                   `json:"watering_duration"`
	ValveState       *bool                 `json:"valve_state"`
	Duration         *int                  `json:"duration"`
	CommandType      *entities.CommandType `json:"command_type"`
}

// SettingsUpdate is the full replacement body for POST /api/settings.
type SettingsUpdate struct {
	Threshold        int  `json:"threshold"`
	WateringDuration int  `json:"watering_duration"`
	TimerEnabled     bool `json:"timer_enabled"`
	TimerHour        int  `json:"timer_hour"`
	TimerMinute      int  `json:"timer_minute"`
}

// SweepResult is the body of POST /api/maintenance/sweep.
type SweepResult struct {
	Deleted   int64  `json:"deleted"`
	Retention string `json:"retention"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL, e.g. http://garden:3536.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Latest returns nil when the server has no readings yet.
func (c *Client) Latest(ctx context.Context) (*entities.Reading, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/readings", nil, &raw); err != nil {
		return nil, err
	}
	if string(bytes.TrimSpace(raw)) == "{}" {
		return nil, nil
	}
	var r entities.Reading
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode reading: %w", err)
	}
	return &r, nil
}

func (c *Client) History(ctx context.Context, window time.Duration) ([]entities.Reading, error) {
	path := "/api/readings/history"
	if window > 0 {
		path += "?window=" + url.QueryEscape(window.String())
	}
	var out []entities.Reading
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Settings(ctx context.Context) (*entities.Settings, error) {
	var s entities.Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, in SettingsUpdate) (*entities.Settings, error) {
	var s entities.Settings
	if err := c.do(ctx, http.MethodPost, "/api/settings", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ControlValve queues a valve command and returns its id.
func (c *Client) ControlValve(ctx context.Context, open bool, duration int, commandType entities.CommandType) (uint, error) {
	body := map[string]any{"state": open, "duration": duration}
	if commandType != "" {
		body["type"] = commandType
	}
	var out struct {
		CommandID uint `json:"command_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/valve/control", body, &out); err != nil {
		return 0, err
	}
	return out.CommandID, nil
}

// Poll performs the device poll. It drains the command queue, so only
// call it when acting as the device.
func (c *Client) Poll(ctx context.Context) (*PollResponse, error) {
	var out PollResponse
	if err := c.do(ctx, http.MethodGet, "/api/get_commands", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PendingCommands(ctx context.Context) ([]entities.Command, error) {
	var out struct {
		Data []entities.Command `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/commands/pending", nil, &out)
	return out.Data, err
}

func (c *Client) RecentCommands(ctx context.Context, limit int) ([]entities.Command, error) {
	var out struct {
		Data []entities.Command `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/commands?limit="+strconv.Itoa(limit), nil, &out)
	return out.Data, err
}

// Sweep asks the server to prune readings; zero uses the server default.
func (c *Client) Sweep(ctx context.Context, retention time.Duration) (*SweepResult, error) {
	path := "/api/maintenance/sweep"
	if retention > 0 {
		path += "?retention=" + url.QueryEscape(retention.String())
	}
	var out SweepResult
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the health body. A degraded server is reported as an
// *APIError with status 503.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
