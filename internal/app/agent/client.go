package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"wallsync/internal/app/agent/config"
	"wallsync/internal/domain/command"
)

// Client talks to the coordinator's device-facing endpoints.
type Client struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &Client{
		client:    client,
		log:       log,
		baseURL:   scheme + cfg.ServerAddress,
		token:     cfg.DeviceToken,
		userAgent: "WallSync-Agent/1.0",
	}
}

// HealthCheck verifies the coordinator is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status: %d", resp.StatusCode)
	}
	return nil
}

// Poll fetches the device's pending command backlog.
func (c *Client) Poll(ctx context.Context) ([]command.Command, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/device/commands", nil)
	if err != nil {
		return nil, err
	}

	var pollResp struct {
		Commands []command.Command `json:"commands"`
	}
	if err := c.parseResponse(resp, &pollResp); err != nil {
		return nil, err
	}
	return pollResp.Commands, nil
}

// AckRequest is the body of a command acknowledgement.
type AckRequest struct {
	Status    command.Status            `json:"status"`
	Error     *string                   `json:"error,omitempty"`
	Telemetry *command.RuntimeTelemetry `json:"telemetry,omitempty"`
}

// Ack reports command execution. Returns whether the server treated the ack
// as an idempotent retry.
func (c *Client) Ack(ctx context.Context, commandID uuid.UUID, req AckRequest) (bool, error) {
	path := fmt.Sprintf("/api/v1/device/commands/%s/ack", commandID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, req)
	if err != nil {
		return false, err
	}

	var ackResp struct {
		Status     string `json:"status"`
		Idempotent bool   `json:"idempotent"`
	}
	if err := c.parseResponse(resp, &ackResp); err != nil {
		return false, err
	}
	return ackResp.Idempotent, nil
}

// Heartbeat reports liveness with an optional runtime telemetry block.
func (c *Client) Heartbeat(ctx context.Context, telemetry *command.RuntimeTelemetry) error {
	body := struct {
		Telemetry *command.RuntimeTelemetry `json:"telemetry,omitempty"`
	}{Telemetry: telemetry}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/device/heartbeat", body)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("X-Device-Token", c.token)
	}

	c.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("received response", "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
