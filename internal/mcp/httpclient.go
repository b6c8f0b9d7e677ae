package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/stats"
	"github.com/claude/ironlog/internal/workout"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the IronLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ListExercises(ctx context.Context, _ int) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (c *HTTPClient) ExerciseStats(ctx context.Context, exerciseID uuid.UUID, limit int, _ int) (*stats.Summary, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var summary stats.Summary
	if err := c.get(ctx, "/api/v1/exercises/"+exerciseID.String()+"/stats", params, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, start, end time.Time, _ int) ([]models.WorkoutLog, error) {
	var logs []models.WorkoutLog
	if err := c.get(ctx, "/api/v1/workouts", timeParams(start, end), &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *HTTPClient) ListRoutines(ctx context.Context, _ int) ([]models.Routine, error) {
	var routines []models.Routine
	if err := c.get(ctx, "/api/v1/routines", nil, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (c *HTTPClient) PreviewOverload(ctx context.Context, logID uuid.UUID, _ int) ([]workout.EntryResult, error) {
	params := url.Values{}
	params.Set("persist", "false")

	path := "/api/v1/workouts/" + logID.String() + "/overload"
	body, err := c.do(ctx, http.MethodPost, path, params)
	if err != nil {
		return nil, err
	}

	var results []workout.EntryResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return results, nil
}
