package seed

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

	"github.com/okian/trainerscope/internal/domain/trend"
	"github.com/okian/trainerscope/internal/domain/types"
)

// Outcome classifies one submission.
type Outcome int

// Submission outcomes.
const (
	OutcomeAccepted Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

// Client talks to the trainerscope HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthz returned %d", ErrUnexpectedCode, resp.StatusCode)
	}
	return nil
}

// Submit posts one assessment. A conflict with an already stored id counts
// as a duplicate.
func (c *Client) Submit(ctx context.Context, a *Assessment) (Outcome, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshal assessment: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/assessments", body)
	if err != nil {
		return OutcomeFailed, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return OutcomeAccepted, nil
	case http.StatusOK, http.StatusConflict:
		return OutcomeDuplicate, nil
	default:
		return OutcomeFailed, fmt.Errorf("%w: submit %s returned %d", ErrUnexpectedCode, a.ID, resp.StatusCode)
	}
}

// Leaderboard fetches the top limit entries.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	var out []types.Entry
	err := c.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &out)
	return out, err
}

// TrainerAlerts fetches the alerts of one trainer.
func (c *Client) TrainerAlerts(ctx context.Context, trainerID string) ([]trend.Alert, error) {
	var out []trend.Alert
	err := c.getJSON(ctx, "/trainers/"+url.PathEscape(trainerID)+"/alerts", &out)
	return out, err
}

// PlatformAlerts fetches the platform-wide alerts.
func (c *Client) PlatformAlerts(ctx context.Context) ([]trend.Alert, error) {
	var out []trend.Alert
	err := c.getJSON(ctx, "/alerts/platform", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedCode, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
