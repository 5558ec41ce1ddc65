package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notetrack/notetrack/internal/apierr"
)

// Client talks to the host note application's HTTP data API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a host API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetRow fetches the row descriptor (columns + cell ids) for a database
// row. This replaces scraping the rendered view: the host returns the
// identifiers directly.
func (c *Client) GetRow(ctx context.Context, databaseID, rowID string) (*Row, error) {
	var row Row
	err := c.call(ctx, "POST", "/api/database/getRow",
		map[string]string{"database": databaseID, "row": rowID}, &row)
	if err != nil {
		return nil, fmt.Errorf("get row %s: %w", rowID, err)
	}
	return &row, nil
}

// ResolveRow maps a block id to the database and row that contain it.
func (c *Client) ResolveRow(ctx context.Context, blockID string) (databaseID, rowID string, err error) {
	var out struct {
		DatabaseID string `json:"database_id"`
		RowID      string `json:"row_id"`
	}
	err = c.call(ctx, "POST", "/api/database/resolveRow",
		map[string]string{"block": blockID}, &out)
	if err != nil {
		return "", "", fmt.Errorf("resolve row for block %s: %w", blockID, err)
	}
	return out.DatabaseID, out.RowID, nil
}

// FindRowByKey locates the row whose key column holds the given value.
func (c *Client) FindRowByKey(ctx context.Context, databaseID, column, value string) (string, error) {
	var out struct {
		RowID string `json:"row_id"`
	}
	err := c.call(ctx, "POST", "/api/database/findRow",
		map[string]string{"database": databaseID, "column": column, "value": value}, &out)
	if err != nil {
		return "", fmt.Errorf("find row %s=%s: %w", column, value, err)
	}
	if out.RowID == "" {
		return "", fmt.Errorf("no row with %s = %q in database %s", column, value, databaseID)
	}
	return out.RowID, nil
}

// ApplyTransaction submits a batch of typed cell operations as one
// transaction. The host applies all or nothing.
func (c *Client) ApplyTransaction(ctx context.Context, databaseID, rowID string, ops []Op) error {
	payload := map[string]interface{}{
		"database": databaseID,
		"row":      rowID,
		"ops":      ops,
	}
	if err := c.call(ctx, "POST", "/api/database/transaction", payload, nil); err != nil {
		return fmt.Errorf("apply transaction: %w", err)
	}
	return nil
}

// ReloadView asks the host to re-render the database view.
func (c *Client) ReloadView(ctx context.Context, databaseID string) error {
	if err := c.call(ctx, "POST", "/api/database/reload",
		map[string]string{"database": databaseID}, nil); err != nil {
		return fmt.Errorf("reload view: %w", err)
	}
	return nil
}

// ListNotebooks lists all notebooks, open and closed.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	var out struct {
		Notebooks []Notebook `json:"notebooks"`
	}
	if err := c.call(ctx, "POST", "/api/notebook/list", nil, &out); err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	return out.Notebooks, nil
}

// DailyNote returns the document id of the daily note for a date in a
// notebook, creating the note if it does not exist.
func (c *Client) DailyNote(ctx context.Context, notebookID string, date time.Time) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, "POST", "/api/filetree/dailyNote",
		map[string]string{"notebook": notebookID, "date": date.Format("2006-01-02")}, &out)
	if err != nil {
		return "", fmt.Errorf("daily note for %s: %w", date.Format("2006-01-02"), err)
	}
	return out.ID, nil
}

// ChildBlocks lists the direct children of a document or block.
func (c *Client) ChildBlocks(ctx context.Context, parentID string) ([]Block, error) {
	var out struct {
		Blocks []Block `json:"blocks"`
	}
	err := c.call(ctx, "POST", "/api/block/children",
		map[string]string{"id": parentID}, &out)
	if err != nil {
		return nil, fmt.Errorf("list child blocks of %s: %w", parentID, err)
	}
	return out.Blocks, nil
}

// AppendBlock appends a content block under parentID and returns the
// new block id.
func (c *Client) AppendBlock(ctx context.Context, parentID, content string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, "POST", "/api/block/append",
		map[string]string{"parent": parentID, "content": content}, &out)
	if err != nil {
		return "", fmt.Errorf("append block: %w", err)
	}
	return out.ID, nil
}

// UpdateBlock replaces a block's content.
func (c *Client) UpdateBlock(ctx context.Context, blockID, content string) error {
	if err := c.call(ctx, "POST", "/api/block/update",
		map[string]string{"id": blockID, "content": content}, nil); err != nil {
		return fmt.Errorf("update block %s: %w", blockID, err)
	}
	return nil
}

// DeleteBlock removes a block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	if err := c.call(ctx, "POST", "/api/block/delete",
		map[string]string{"id": blockID}, nil); err != nil {
		return fmt.Errorf("delete block %s: %w", blockID, err)
	}
	return nil
}

// SetBlockAttrs sets custom attributes on a block.
func (c *Client) SetBlockAttrs(ctx context.Context, blockID string, attrs map[string]string) error {
	payload := map[string]interface{}{"id": blockID, "attrs": attrs}
	if err := c.call(ctx, "POST", "/api/block/setAttrs", payload, nil); err != nil {
		return fmt.Errorf("set attrs on %s: %w", blockID, err)
	}
	return nil
}

// QueryBlocksByAttr searches the host's attribute index across all open
// notebooks for blocks carrying attribute name=value.
func (c *Client) QueryBlocksByAttr(ctx context.Context, name, value string) ([]Block, error) {
	var out struct {
		Blocks []Block `json:"blocks"`
	}
	err := c.call(ctx, "POST", "/api/query/attr",
		map[string]string{"name": name, "value": value}, &out)
	if err != nil {
		return nil, fmt.Errorf("query blocks by %s: %w", name, err)
	}
	return out.Blocks, nil
}

// call performs one host API request, retrying transient failures, and
// decodes the response envelope into out when non-nil.
func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	if c.BaseURL == "" {
		return fmt.Errorf("host API URL not configured")
	}

	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var respBody []byte
	op := func() error {
		var bodyReader io.Reader
		if data != nil {
			bodyReader = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.Token != "" {
			req.Header.Set("Authorization", "Token "+c.Token)
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &apierr.Error{Service: "host", StatusCode: resp.StatusCode, Body: string(respBody)}
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}
