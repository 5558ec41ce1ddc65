package lark

import (
	"context"
	"fmt"
	"time"

	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/tracker"
	"github.com/notetrack/notetrack/internal/types"
)

func init() {
	tracker.Register("lark", func() tracker.WorklogTracker {
		return &Tracker{}
	})
}

// Tracker implements tracker.WorklogTracker for Lark project spaces.
// Issue data comes from the Open API; work hours go through the
// separate work-hour service.
type Tracker struct {
	client    *Client
	workHours *WorkHourClient
}

func (t *Tracker) Name() string        { return "lark" }
func (t *Tracker) DisplayName() string { return "Lark" }

func (t *Tracker) Init(ctx context.Context, cfg *config.Config, deps tracker.Deps) error {
	lc := cfg.Lark
	if lc.BaseURL == "" {
		return fmt.Errorf("Lark base URL not configured (set lark.base_url or LARK_URL)")
	}
	if lc.PluginID == "" || lc.PluginSecret == "" {
		return fmt.Errorf("Lark plugin credentials not configured (lark.plugin_id / lark.plugin_secret)")
	}
	if lc.UserKey == "" {
		return fmt.Errorf("Lark user key not configured (lark.user_key or LARK_USER_KEY)")
	}

	tokens := NewTokenSource(deps.Store, lc.BaseURL, lc.PluginID, lc.PluginSecret)
	t.client = NewClient(lc.BaseURL, lc.SpaceID, lc.UserKey, tokens, deps.IDCache)
	t.workHours = NewWorkHourClient(lc.WorkHourBaseURL, lc.ProjectKey, lc.Authorization)
	return nil
}

// Validate checks that a plugin token can be obtained and the space's
// type list is readable.
func (t *Tracker) Validate(ctx context.Context) error {
	if t.client == nil {
		return fmt.Errorf("lark tracker not initialized")
	}
	if _, err := t.client.AllTypes(ctx); err != nil {
		return fmt.Errorf("lark connection check: %w", err)
	}
	return nil
}

func (t *Tracker) FetchIssue(ctx context.Context, key string) (map[string]interface{}, error) {
	return t.client.FetchIssue(ctx, key)
}

func (t *Tracker) ListEntries(ctx context.Context, key string, day time.Time) ([]types.TimeEntry, error) {
	_, entityID, err := t.client.FindWorkItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = time.Now()
	}
	entries, err := t.workHours.QueryNodeWorkHour(ctx, entityID, day)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].ItemKey = key
	}
	return entries, nil
}

func (t *Tracker) AddEntry(ctx context.Context, key string, e *types.TimeEntry) (*types.TimeEntry, error) {
	_, entityID, err := t.client.FindWorkItem(ctx, key)
	if err != nil {
		return nil, err
	}

	id, err := t.workHours.InsertNodeWorkHour(ctx, entityID, e.NodeID, e.Day(), e.Duration, e.Description)
	if err != nil {
		return nil, err
	}

	out := *e
	out.ID = id
	out.ItemKey = key
	out.EntityID = entityID
	return &out, nil
}

func (t *Tracker) UpdateEntry(ctx context.Context, key string, e *types.TimeEntry) error {
	return t.workHours.UpdateNodeWorkHour(ctx, e.ID, e.Day(), e.Duration, e.Description)
}

func (t *Tracker) DeleteEntry(ctx context.Context, key, entryID string) error {
	return t.workHours.DeleteNodeWorkHour(ctx, entryID)
}

func (t *Tracker) Nodes(ctx context.Context, key string, day time.Time) ([]types.WorkItemNode, error) {
	_, entityID, err := t.client.FindWorkItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = time.Now()
	}
	return t.workHours.GetEntityNodes(ctx, entityID, day)
}

// NodeUsers lists the users time can be attributed to on a node.
func (t *Tracker) NodeUsers(ctx context.Context, key, nodeID string) ([]string, error) {
	_, entityID, err := t.client.FindWorkItem(ctx, key)
	if err != nil {
		return nil, err
	}
	return t.workHours.SelectNodeUserList(ctx, entityID, nodeID)
}
