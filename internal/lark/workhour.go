package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notetrack/notetrack/internal/apierr"
	"github.com/notetrack/notetrack/internal/duration"
	"github.com/notetrack/notetrack/internal/types"
)

const workHourDateFormat = "2006-01-02"

// WorkHourClient talks to the Lark work-log service, which lives on its
// own base URL with its own auth pair.
type WorkHourClient struct {
	BaseURL       string
	ProjectKey    string
	Authorization string
	HTTPClient    *http.Client
}

// NewWorkHourClient creates a work-hour service client.
func NewWorkHourClient(baseURL, projectKey, authorization string) *WorkHourClient {
	return &WorkHourClient{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		ProjectKey:    projectKey,
		Authorization: authorization,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// workHourRecord is the service's wire shape for one logged span.
type workHourRecord struct {
	ID          string  `json:"id"`
	NodeID      string  `json:"nodeId"`
	NodeName    string  `json:"nodeName"`
	WorkHour    float64 `json:"workHour"` // decimal hours
	Description string  `json:"description"`
	UserName    string  `json:"userName"`
	Avatar      string  `json:"avatar"`
	WorkDate    string  `json:"workDate"`
}

// QueryNodeWorkHour lists logged hours for an entity on a date.
func (c *WorkHourClient) QueryNodeWorkHour(ctx context.Context, entityID string, day time.Time) ([]types.TimeEntry, error) {
	payload := map[string]interface{}{
		"entityId": entityID,
		"workDate": day.Format(workHourDateFormat),
	}

	body, err := c.doRequest(ctx, "POST", "/workHour/queryNodeWorkHour", payload, nil)
	if err != nil {
		return nil, fmt.Errorf("query node work hours: %w", err)
	}

	var result struct {
		Data []workHourRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse work hour response: %w", err)
	}

	entries := make([]types.TimeEntry, 0, len(result.Data))
	for _, rec := range result.Data {
		start, _ := time.Parse(workHourDateFormat, rec.WorkDate)
		entries = append(entries, types.TimeEntry{
			ID:          rec.ID,
			Start:       start,
			Description: rec.Description,
			Duration:    duration.FormatHours(rec.WorkHour),
			NodeID:      rec.NodeID,
			NodeName:    rec.NodeName,
			Author:      rec.UserName,
			AvatarURL:   rec.Avatar,
			EntityID:    entityID,
		})
	}
	return entries, nil
}

// SelectNodeUserList lists the users attributable to a node.
func (c *WorkHourClient) SelectNodeUserList(ctx context.Context, entityID, nodeID string) ([]string, error) {
	q := url.Values{"entityId": {entityID}, "nodeId": {nodeID}}

	body, err := c.doRequest(ctx, "GET", "/entityInstance/selectNodeUserList", nil, q)
	if err != nil {
		return nil, fmt.Errorf("select node users: %w", err)
	}

	var result struct {
		Data []struct {
			UserName string `json:"userName"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse node user response: %w", err)
	}

	users := make([]string, 0, len(result.Data))
	for _, u := range result.Data {
		users = append(users, u.UserName)
	}
	return users, nil
}

// InsertNodeWorkHour logs hours against a node and returns the new
// record's id. The duration string is converted to decimal hours here;
// the service has no concept of "1h 30m".
func (c *WorkHourClient) InsertNodeWorkHour(ctx context.Context, entityID, nodeID string, day time.Time, durationStr, description string) (string, error) {
	payload := map[string]interface{}{
		"entityId":    entityID,
		"nodeId":      nodeID,
		"workDate":    day.Format(workHourDateFormat),
		"workHour":    duration.ParseHours(durationStr),
		"description": description,
	}

	body, err := c.doRequest(ctx, "POST", "/entityInstance/batchInsertNodeWorkHour", []interface{}{payload}, nil)
	if err != nil {
		return "", fmt.Errorf("insert node work hour: %w", err)
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse insert response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", fmt.Errorf("insert node work hour: empty response")
	}
	return result.Data[0].ID, nil
}

// UpdateNodeWorkHour rewrites a logged record in place.
func (c *WorkHourClient) UpdateNodeWorkHour(ctx context.Context, recordID string, day time.Time, durationStr, description string) error {
	payload := map[string]interface{}{
		"id":          recordID,
		"workDate":    day.Format(workHourDateFormat),
		"workHour":    duration.ParseHours(durationStr),
		"description": description,
	}

	if _, err := c.doRequest(ctx, "POST", "/workHour/updateNodeWorkHour", payload, nil); err != nil {
		return fmt.Errorf("update node work hour %s: %w", recordID, err)
	}
	return nil
}

// DeleteNodeWorkHour removes a logged record.
func (c *WorkHourClient) DeleteNodeWorkHour(ctx context.Context, recordID string) error {
	payload := map[string]interface{}{"id": recordID}
	if _, err := c.doRequest(ctx, "POST", "/workHour/deleteNodeWorkHour", payload, nil); err != nil {
		return fmt.Errorf("delete node work hour %s: %w", recordID, err)
	}
	return nil
}

// GetEntityNodes lists the workable nodes of an entity on a date.
func (c *WorkHourClient) GetEntityNodes(ctx context.Context, entityID string, day time.Time) ([]types.WorkItemNode, error) {
	q := url.Values{
		"entityId": {entityID},
		"workDate": {day.Format(workHourDateFormat)},
	}

	body, err := c.doRequest(ctx, "GET", "/entityInstance/new/getEntityNode", nil, q)
	if err != nil {
		return nil, fmt.Errorf("get entity nodes: %w", err)
	}

	var result struct {
		Data []struct {
			NodeID   string `json:"nodeId"`
			NodeName string `json:"nodeName"`
			HasNext  bool   `json:"hasNext"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse entity node response: %w", err)
	}

	nodes := make([]types.WorkItemNode, 0, len(result.Data))
	for _, n := range result.Data {
		nodes = append(nodes, types.WorkItemNode{ID: n.NodeID, Name: n.NodeName, HasNext: n.HasNext})
	}
	return nodes, nil
}

func (c *WorkHourClient) doRequest(ctx context.Context, method, path string, payload interface{}, query url.Values) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("lark work-hour URL not configured")
	}

	apiURL := c.BaseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Project-Key", c.ProjectKey)
	req.Header.Set("Authorization", c.Authorization)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apierr.Error{Service: "lark-workhour", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
