package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"daybook/internal/daemon"
	"daybook/internal/progress"
	"daybook/internal/views"
)

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

func (c *apiClient) Health(ctx context.Context) error {
	return c.get(ctx, "/api/health", nil)
}

func (c *apiClient) JobsByToken(ctx context.Context, token string) ([]progress.Snapshot, error) {
	var payload struct {
		Jobs []progress.Snapshot `json:"jobs"`
	}
	path := "/api/jobs?token=" + url.QueryEscape(token)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

func (c *apiClient) JobByID(ctx context.Context, id int64) (*progress.Snapshot, error) {
	var snapshot progress.Snapshot
	if err := c.get(ctx, fmt.Sprintf("/api/jobs/%d", id), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *apiClient) CompassViews(ctx context.Context, userID string, limit int) ([]*views.CompassView, error) {
	var payload struct {
		Views []*views.CompassView `json:"views"`
	}
	path := fmt.Sprintf("/api/views/compass?user=%s&limit=%d", url.QueryEscape(userID), limit)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Views, nil
}

func (c *apiClient) CompassByDate(ctx context.Context, userID, date string) (*views.CompassView, error) {
	var view views.CompassView
	path := fmt.Sprintf("/api/views/compass?user=%s&date=%s", url.QueryEscape(userID), url.QueryEscape(date))
	if err := c.get(ctx, path, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) WinsViews(ctx context.Context, userID string, limit int) ([]*views.WinsView, error) {
	var payload struct {
		Views []*views.WinsView `json:"views"`
	}
	path := fmt.Sprintf("/api/views/wins?user=%s&limit=%d", url.QueryEscape(userID), limit)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Views, nil
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
