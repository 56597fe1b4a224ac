// Package remote is the HTTP client for the contacts and controlo endpoints
// the board talks to.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	contactstransport "leadboard_backend/internal/contacts/transport"
	controlotransport "leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"
)

const (
	contactsPath   = "/contacts"
	autoKPIsPath   = "/controlo/auto-kpis"
	weeklyLogsPath = "/controlo/weekly-logs"
	competitorPath = "/controlo/competitors"
	unitsPath      = "/controlo/units"
	targetsPath    = "/controlo/targets"

	maxErrorBody = 4 << 10
)

// Client calls the backend with a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *logger.Logger
}

// New creates a client for baseURL (for example https://host/api/v1).
func New(baseURL, token string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
		log:        log,
	}
}

// NewFromConfig creates a client from the board configuration.
func NewFromConfig(cfg config.BoardConfig, log *logger.Logger) *Client {
	return New(cfg.GetBackendURL(), cfg.GetBackendToken(), cfg.GetBackendTimeout(), log)
}

// ListContacts loads every lead of a project. An empty projectID loads all.
func (c *Client) ListContacts(ctx context.Context, projectID string) ([]domain.Lead, error) {
	params := url.Values{}
	if projectID != "" {
		params.Set("projectId", projectID)
	}

	var resp contactstransport.ContactListResponse
	if err := c.do(ctx, http.MethodGet, contactsPath, params, nil, &resp); err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, 0, len(resp.Items))
	for _, item := range resp.Items {
		leads = append(leads, toLead(item))
	}
	return leads, nil
}

// UpdateContact sends only the fields set on patch and returns the record
// the backend confirmed.
func (c *Client) UpdateContact(ctx context.Context, leadID string, patch domain.Patch) (domain.Lead, error) {
	var resp contactstransport.ContactResponse
	if err := c.do(ctx, http.MethodPut, contactsPath+"/"+url.PathEscape(leadID), nil, toUpdateRequest(patch), &resp); err != nil {
		return domain.Lead{}, err
	}
	return toLead(resp), nil
}

// AutoKPIs returns the backend-computed report for a project.
func (c *Client) AutoKPIs(ctx context.Context, projectID string) (kpi.ProjectReport, error) {
	var report kpi.ProjectReport
	err := c.do(ctx, http.MethodGet, autoKPIsPath, url.Values{"projectId": {projectID}}, nil, &report)
	return report, err
}

// ListUnits returns the units of a project.
func (c *Client) ListUnits(ctx context.Context, projectID string) ([]kpi.Unit, error) {
	var resp controlotransport.UnitListResponse
	err := c.do(ctx, http.MethodGet, unitsPath, url.Values{"projectId": {projectID}}, nil, &resp)
	return resp.Items, err
}

// Targets returns the targets in effect for a project.
func (c *Client) Targets(ctx context.Context, projectID string) (controlotransport.TargetsResponse, error) {
	var resp controlotransport.TargetsResponse
	err := c.do(ctx, http.MethodGet, targetsPath, url.Values{"projectId": {projectID}}, nil, &resp)
	return resp, err
}

// ListWeeklyLogs returns the weekly logs of a project.
func (c *Client) ListWeeklyLogs(ctx context.Context, projectID string) ([]kpi.WeeklyLog, error) {
	var resp controlotransport.WeeklyLogListResponse
	err := c.do(ctx, http.MethodGet, weeklyLogsPath, url.Values{"projectId": {projectID}}, nil, &resp)
	return resp.Items, err
}

// CreateWeeklyLog stores a new weekly log.
func (c *Client) CreateWeeklyLog(ctx context.Context, req controlotransport.WeeklyLogRequest) (kpi.WeeklyLog, error) {
	var log kpi.WeeklyLog
	err := c.do(ctx, http.MethodPost, weeklyLogsPath, nil, req, &log)
	return log, err
}

// UpdateWeeklyLog replaces a weekly log.
func (c *Client) UpdateWeeklyLog(ctx context.Context, id string, req controlotransport.WeeklyLogRequest) (kpi.WeeklyLog, error) {
	var log kpi.WeeklyLog
	err := c.do(ctx, http.MethodPut, weeklyLogsPath+"/"+url.PathEscape(id), nil, req, &log)
	return log, err
}

// DeleteWeeklyLog removes a weekly log.
func (c *Client) DeleteWeeklyLog(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, weeklyLogsPath+"/"+url.PathEscape(id), nil, nil, nil)
}

// ListCompetitors returns the comparables of a project.
func (c *Client) ListCompetitors(ctx context.Context, projectID string) ([]kpi.Competitor, error) {
	var resp controlotransport.CompetitorListResponse
	err := c.do(ctx, http.MethodGet, competitorPath, url.Values{"projectId": {projectID}}, nil, &resp)
	return resp.Items, err
}

// CreateCompetitor stores a comparable.
func (c *Client) CreateCompetitor(ctx context.Context, req controlotransport.CompetitorRequest) (kpi.Competitor, error) {
	var comp kpi.Competitor
	err := c.do(ctx, http.MethodPost, competitorPath, nil, req, &comp)
	return comp, err
}

// UpdateCompetitor replaces a comparable.
func (c *Client) UpdateCompetitor(ctx context.Context, id string, req controlotransport.CompetitorRequest) (kpi.Competitor, error) {
	var comp kpi.Competitor
	err := c.do(ctx, http.MethodPut, competitorPath+"/"+url.PathEscape(id), nil, req, &comp)
	return comp, err
}

// DeleteCompetitor removes a comparable.
func (c *Client) DeleteCompetitor(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, competitorPath+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		if statusErr.Status >= http.StatusInternalServerError {
			c.log.Warn("backend upstream error", "method", method, "path", path, "status", resp.StatusCode)
		} else {
			c.log.Info("backend rejected request", "method", method, "path", path, "status", resp.StatusCode, "message", statusErr.Message)
		}
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(bytes.TrimSpace(raw))
}
