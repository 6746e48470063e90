package api

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

	"splice/internal/command"
	"splice/internal/ledger"
	"splice/internal/render"
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	// RequestID matches the daemon log line describing the failure.
	RequestID string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.Code)
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// Client talks to a running daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient targets server, a host:port or URL.
func NewClient(server, token string) (*Client, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return nil, fmt.Errorf("api server address required")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	base, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// GetProject returns the serialized document of versionID; empty means
// latest.
func (c *Client) GetProject(ctx context.Context, projectID, versionID string) (string, error) {
	var resp ProjectResponse
	err := c.do(ctx, http.MethodGet, projectPath(projectID, ""), versionQuery(versionID), nil, &resp)
	return resp.Project, err
}

// RunCommand applies cmd to versionID of projectID.
func (c *Client) RunCommand(ctx context.Context, projectID, versionID string, cmd command.Command) (CommandResponse, error) {
	var resp CommandResponse
	err := c.do(ctx, http.MethodPut, projectPath(projectID, ""), versionQuery(versionID), cmd, &resp)
	return resp, err
}

// CreateProject starts a new project from the template.
func (c *Client) CreateProject(ctx context.Context) (CreateProjectResponse, error) {
	var resp CreateProjectResponse
	err := c.do(ctx, http.MethodPost, "/api/projects", nil, nil, &resp)
	return resp, err
}

// Video returns the render job of projectID.
func (c *Client) Video(ctx context.Context, projectID string) (render.Job, error) {
	var job render.Job
	err := c.do(ctx, http.MethodGet, projectPath(projectID, "video"), nil, nil, &job)
	return job, err
}

// DownloadVideo streams the latest render of projectID into w.
func (c *Client) DownloadVideo(ctx context.Context, projectID string, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, projectPath(projectID, "video"), url.Values{"media": {"1"}}, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

// Versions lists the stored versions of projectID.
func (c *Client) Versions(ctx context.Context, projectID string) (VersionsResponse, error) {
	var resp VersionsResponse
	err := c.do(ctx, http.MethodGet, projectPath(projectID, "versions"), nil, nil, &resp)
	return resp, err
}

// Events returns up to limit recent journal events of projectID.
func (c *Client) Events(ctx context.Context, projectID string, limit int) ([]ledger.Event, error) {
	var resp EventsResponse
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	err := c.do(ctx, http.MethodGet, projectPath(projectID, "events"), query, nil, &resp)
	return resp.Events, err
}

// Status returns the daemon summary.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &resp)
	return resp, err
}

// DeadLetters lists the dead-letter queue.
func (c *Client) DeadLetters(ctx context.Context) ([]ledger.DeadLetter, error) {
	var resp DeadLettersResponse
	err := c.do(ctx, http.MethodGet, "/api/deadletters", nil, nil, &resp)
	return resp.DeadLetters, err
}

func projectPath(projectID, sub string) string {
	p := "/api/projects/" + projectID
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func versionQuery(versionID string) url.Values {
	if strings.TrimSpace(versionID) == "" {
		return nil
	}
	return url.Values{"versionId": {versionID}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, RequestID: resp.Header.Get(requestIDHeader)}
	}
	return resp, nil
}
