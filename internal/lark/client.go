package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/notetrack/notetrack/internal/apierr"
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/idcache"
)

// identityTTL bounds how long a resolved (typeKey, entityID) pair is
// trusted before the space is re-probed.
const identityTTL = 24 * time.Hour

// WorkItemType is one work-item type registered in the space.
type WorkItemType struct {
	TypeKey string `json:"type_key"`
	Name    string `json:"name"`
}

// WorkItem is a queried work item with its raw field payload preserved
// for projection.
type WorkItem struct {
	ID      int64                  `json:"id"`
	Name    string                 `json:"name"`
	TypeKey string                 `json:"work_item_type_key"`
	Fields  map[string]interface{} `json:"-"`
}

// Client talks to the Lark project Open API for one space.
type Client struct {
	BaseURL    string
	SpaceID    string
	UserKey    string
	Tokens     *TokenSource
	Cache      *idcache.Cache
	HTTPClient *http.Client
}

// NewClient creates a Lark Open API client.
func NewClient(baseURL, spaceID, userKey string, tokens *TokenSource, cache *idcache.Cache) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		SpaceID:    spaceID,
		UserKey:    userKey,
		Tokens:     tokens,
		Cache:      cache,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AllTypes lists every work-item type in the space.
func (c *Client) AllTypes(ctx context.Context) ([]WorkItemType, error) {
	apiURL := fmt.Sprintf("%s/open_api/%s/work_item/all-types", c.BaseURL, c.SpaceID)

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("list work-item types: %w", err)
	}

	var result struct {
		Data []WorkItemType `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse all-types response: %w", err)
	}
	return result.Data, nil
}

// FindWorkItem resolves an issue key to its (typeKey, entityID) pair.
// Lark has no direct get-by-key call, so an uncached key means probing
// every type with a batch query until one matches. Hits are cached.
func (c *Client) FindWorkItem(ctx context.Context, key string) (typeKey, entityID string, err error) {
	if c.Cache != nil {
		if typeKey, entityID, ok := c.Cache.Get(key); ok {
			return typeKey, entityID, nil
		}
	}

	allTypes, err := c.AllTypes(ctx)
	if err != nil {
		return "", "", err
	}

	for _, wt := range allTypes {
		item, err := c.queryByName(ctx, wt.TypeKey, key)
		if err != nil {
			// A type that rejects the probe doesn't rule out the others.
			debug.Logf("lark: probe of type %s failed: %v", wt.TypeKey, err)
			continue
		}
		if item == nil {
			continue
		}
		entityID := strconv.FormatInt(item.ID, 10)
		if c.Cache != nil {
			if err := c.Cache.Set(key, wt.TypeKey, entityID, identityTTL); err != nil {
				debug.Logf("lark: identity cache persist failed: %v", err)
			}
		}
		return wt.TypeKey, entityID, nil
	}
	return "", "", fmt.Errorf("work item %q not found in space %s", key, c.SpaceID)
}

// FetchIssue returns the raw field payload of the work item behind key.
func (c *Client) FetchIssue(ctx context.Context, key string) (map[string]interface{}, error) {
	typeKey, entityID, err := c.FindWorkItem(ctx, key)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(entityID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad cached entity id %q: %w", entityID, err)
	}

	item, err := c.queryByID(ctx, typeKey, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		// Cached identity went stale (item moved or deleted); drop it so
		// the next lookup re-probes.
		if c.Cache != nil {
			c.Cache.Clear(key)
		}
		return nil, fmt.Errorf("work item %q no longer exists as %s/%d", key, typeKey, id)
	}
	return item.Fields, nil
}

// queryByName probes one type for a work item matching key by name.
func (c *Client) queryByName(ctx context.Context, typeKey, key string) (*WorkItem, error) {
	return c.query(ctx, typeKey, map[string]interface{}{
		"work_item_name": key,
		"page_num":       1,
		"page_size":      20,
	}, func(item *WorkItem) bool {
		return item.Name == key || strconv.FormatInt(item.ID, 10) == key
	})
}

// queryByID fetches a work item of a known type by entity id.
func (c *Client) queryByID(ctx context.Context, typeKey string, id int64) (*WorkItem, error) {
	return c.query(ctx, typeKey, map[string]interface{}{
		"work_item_ids": []int64{id},
	}, func(item *WorkItem) bool {
		return item.ID == id
	})
}

func (c *Client) query(ctx context.Context, typeKey string, payload map[string]interface{}, match func(*WorkItem) bool) (*WorkItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	apiURL := fmt.Sprintf("%s/open_api/%s/work_item/%s/query", c.BaseURL, c.SpaceID, typeKey)

	body, err := c.doRequest(ctx, "POST", apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("query %s work items: %w", typeKey, err)
	}

	var result struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse query response: %w", err)
	}

	for _, raw := range result.Data {
		var item WorkItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if !match(&item) {
			continue
		}
		// Preserve the full payload for field mapping.
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err == nil {
			item.Fields = fields
		}
		return &item, nil
	}
	return nil, nil
}

// doRequest executes a request with plugin-token auth headers and
// unwraps the Lark response envelope's error code.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-PLUGIN-TOKEN", token)
	req.Header.Set("X-USER-KEY", c.UserKey)
	req.Header.Set("Accept", "application/json")
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apierr.Error{Service: "lark", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var envelope struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Code != 0 {
		return nil, fmt.Errorf("lark API error code %d: %s", envelope.Code, envelope.Msg)
	}

	return respBody, nil
}
