// Package jira provides HTTP access to a JIRA instance: issue fetch and
// worklog CRUD against the v2 REST API.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notetrack/notetrack/internal/apierr"
)

// startedFormat is JIRA's worklog timestamp layout.
const startedFormat = "2006-01-02T15:04:05.000-0700"

// Worklog is a single JIRA worklog record.
type Worklog struct {
	ID      string `json:"id"`
	Comment string `json:"comment"`
	Started string `json:"started"`
	// TimeSpent is JIRA's native duration string ("1h 30m"); it is
	// passed through verbatim in both directions.
	TimeSpent string `json:"timeSpent"`
	Author    struct {
		DisplayName string            `json:"displayName"`
		AvatarURLs  map[string]string `json:"avatarUrls"`
	} `json:"author"`
}

// StartedTime parses the worklog's started timestamp.
func (w *Worklog) StartedTime() (time.Time, error) {
	return time.Parse(startedFormat, w.Started)
}

// Client provides HTTP access to a JIRA instance.
type Client struct {
	URL        string
	Username   string
	APIToken   string
	HTTPClient *http.Client
}

// NewClient creates a new JIRA client.
func NewClient(url, username, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(url, "/"),
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetIssue fetches a single issue by key (e.g., "PROJ-123") as raw JSON,
// decoded generically so field mappings can address any path.
func (c *Client) GetIssue(ctx context.Context, key string) (map[string]interface{}, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}

	var issue map[string]interface{}
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}
	return issue, nil
}

// ListWorklogs fetches all worklog records for an issue.
func (c *Client) ListWorklogs(ctx context.Context, key string) ([]Worklog, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("list worklogs for %s: %w", key, err)
	}

	var result struct {
		Worklogs []Worklog `json:"worklogs"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse worklog response: %w", err)
	}
	return result.Worklogs, nil
}

// AddWorklog creates a worklog record on an issue. timeSpent is a JIRA
// duration string passed through verbatim.
func (c *Client) AddWorklog(ctx context.Context, key string, started time.Time, timeSpent, comment string) (*Worklog, error) {
	payload := map[string]interface{}{
		"started":   started.Format(startedFormat),
		"timeSpent": timeSpent,
		"comment":   comment,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal worklog request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, "POST", apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("add worklog to %s: %w", key, err)
	}

	var created Worklog
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse worklog response: %w", err)
	}
	return &created, nil
}

// UpdateWorklog rewrites an existing worklog record.
func (c *Client) UpdateWorklog(ctx context.Context, key, worklogID string, started time.Time, timeSpent, comment string) error {
	payload := map[string]interface{}{
		"started":   started.Format(startedFormat),
		"timeSpent": timeSpent,
		"comment":   comment,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal worklog request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog/%s", c.URL, url.PathEscape(key), url.PathEscape(worklogID))

	if _, err := c.doRequest(ctx, "PUT", apiURL, data); err != nil {
		return fmt.Errorf("update worklog %s on %s: %w", worklogID, key, err)
	}
	return nil
}

// DeleteWorklog removes a worklog record.
func (c *Client) DeleteWorklog(ctx context.Context, key, worklogID string) error {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog/%s", c.URL, url.PathEscape(key), url.PathEscape(worklogID))

	if _, err := c.doRequest(ctx, "DELETE", apiURL, nil); err != nil {
		return fmt.Errorf("delete worklog %s on %s: %w", worklogID, key, err)
	}
	return nil
}

// doRequest executes an authenticated HTTP request and returns the
// response body. Non-2xx responses surface as *apierr.Error.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "notetrack/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// PUT and DELETE return 204 No Content on success.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apierr.Error{Service: "jira", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// setAuth sets Basic auth from username+token, falling back to a bearer
// token for server instances without a username.
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}
