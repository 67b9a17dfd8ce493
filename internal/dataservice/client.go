// Package dataservice implements the HTTP client for the backend anomaly
// analysis service. All dashboard data flows through this client; it owns
// request construction, retry behavior, and response decoding, and nothing
// else in the system talks to the backend directly.
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/palletops/warehouse-monitor/internal/config"
	"github.com/palletops/warehouse-monitor/internal/domain"
	"github.com/palletops/warehouse-monitor/internal/pkg/httpretry"
)

// Client is a Data Service API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Data Service client with retrying transport.
func NewClient(cfg config.DataServiceConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// doRequest executes an HTTP request against the Data Service and returns
// the raw response body. Non-2xx responses become errors.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GetActionCenterSnapshot fetches the open action-item rollup.
func (c *Client) GetActionCenterSnapshot(ctx context.Context) (*ActionCenterSnapshot, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/action-center", nil)
	if err != nil {
		return nil, err
	}
	var snap ActionCenterSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parsing action center snapshot: %w", err)
	}
	return &snap, nil
}

// GetAchievementsSnapshot fetches the achievements and health score.
func (c *Client) GetAchievementsSnapshot(ctx context.Context) (*AchievementsSnapshot, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/achievements", nil)
	if err != nil {
		return nil, err
	}
	var snap AchievementsSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parsing achievements snapshot: %w", err)
	}
	return &snap, nil
}

// ListReports fetches the uploaded report list, most recent first per the
// backend contract. Ordering is not re-checked here; consumers that care
// sort explicitly.
func (c *Client) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/reports", nil)
	if err != nil {
		return nil, err
	}
	var reports []domain.ReportSummary
	if err := json.Unmarshal(body, &reports); err != nil {
		return nil, fmt.Errorf("parsing report list: %w", err)
	}
	return reports, nil
}

// GetReportDetail fetches the per-location anomaly breakdown for a report.
func (c *Client) GetReportDetail(ctx context.Context, reportID int64) (*ReportDetail, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/reports/%d", reportID), nil)
	if err != nil {
		return nil, err
	}
	var detail ReportDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("parsing report detail: %w", err)
	}
	if detail.ReportID == 0 {
		detail.ReportID = reportID
	}
	return &detail, nil
}

// GetSpaceUtilization fetches capacity figures for a report.
func (c *Client) GetSpaceUtilization(ctx context.Context, reportID int64) (*SpaceUtilization, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/reports/%d/space-utilization", reportID), nil)
	if err != nil {
		return nil, err
	}
	var util SpaceUtilization
	if err := json.Unmarshal(body, &util); err != nil {
		return nil, fmt.Errorf("parsing space utilization: %w", err)
	}
	return &util, nil
}

// ResolveAnomaly marks a single anomaly resolved.
func (c *Client) ResolveAnomaly(ctx context.Context, anomalyID string) (*ResolveResult, error) {
	return c.doResolve(ctx, "/api/v1/anomalies/"+url.PathEscape(anomalyID)+"/resolve", nil)
}

// ResolveCategory marks every active anomaly of one type resolved.
func (c *Client) ResolveCategory(ctx context.Context, anomalyType domain.AnomalyType) (*ResolveResult, error) {
	return c.doResolve(ctx, "/api/v1/anomalies/categories/"+url.PathEscape(string(anomalyType))+"/resolve", nil)
}

// ResolveBulk marks the given anomalies resolved in one call.
func (c *Client) ResolveBulk(ctx context.Context, anomalyIDs []string) (*ResolveResult, error) {
	return c.doResolve(ctx, "/api/v1/anomalies/resolve-bulk", map[string][]string{"ids": anomalyIDs})
}

// ResolveAll marks every active anomaly resolved.
func (c *Client) ResolveAll(ctx context.Context) (*ResolveResult, error) {
	return c.doResolve(ctx, "/api/v1/anomalies/resolve-all", nil)
}

func (c *Client) doResolve(ctx context.Context, path string, body any) (*ResolveResult, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var result ResolveResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing resolve result: %w", err)
	}
	return &result, nil
}

// Ping verifies the backend is reachable. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.doRequest(ctx, http.MethodGet, "/api/v1/reports", nil)
	return err
}
