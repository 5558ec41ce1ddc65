package jira

import (
	"context"
	"fmt"
	"time"

	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/tracker"
	"github.com/notetrack/notetrack/internal/types"
)

func init() {
	tracker.Register("jira", func() tracker.WorklogTracker {
		return &Tracker{}
	})
}

// Tracker implements tracker.WorklogTracker for JIRA.
type Tracker struct {
	client *Client
}

func (t *Tracker) Name() string        { return "jira" }
func (t *Tracker) DisplayName() string { return "JIRA" }

func (t *Tracker) Init(ctx context.Context, cfg *config.Config, deps tracker.Deps) error {
	if cfg.Jira.BaseURL == "" {
		return fmt.Errorf("JIRA base URL not configured (set jira.base_url or JIRA_URL)")
	}
	if cfg.Jira.APIToken == "" {
		return fmt.Errorf("JIRA API token not configured (set jira.api_token or JIRA_API_TOKEN)")
	}
	t.client = NewClient(cfg.Jira.BaseURL, cfg.Jira.Username, cfg.Jira.APIToken)
	return nil
}

// Validate probes the instance with a harmless request.
func (t *Tracker) Validate(ctx context.Context) error {
	if t.client == nil {
		return fmt.Errorf("jira tracker not initialized")
	}
	// Myself endpoint is the cheapest authenticated call.
	apiURL := t.client.URL + "/rest/api/2/myself"
	if _, err := t.client.doRequest(ctx, "GET", apiURL, nil); err != nil {
		return fmt.Errorf("jira connection check: %w", err)
	}
	return nil
}

func (t *Tracker) FetchIssue(ctx context.Context, key string) (map[string]interface{}, error) {
	return t.client.GetIssue(ctx, key)
}

func (t *Tracker) ListEntries(ctx context.Context, key string, day time.Time) ([]types.TimeEntry, error) {
	logs, err := t.client.ListWorklogs(ctx, key)
	if err != nil {
		return nil, err
	}

	var entries []types.TimeEntry
	for _, w := range logs {
		started, err := w.StartedTime()
		if err != nil {
			// Keep the record visible even with a timestamp JIRA
			// formatted unexpectedly.
			started = time.Time{}
		}
		if !day.IsZero() && !sameDay(started, day) {
			continue
		}
		entries = append(entries, types.TimeEntry{
			ID:          w.ID,
			Start:       started,
			Description: w.Comment,
			Duration:    w.TimeSpent,
			Author:      w.Author.DisplayName,
			AvatarURL:   w.Author.AvatarURLs["48x48"],
			ItemKey:     key,
		})
	}
	return entries, nil
}

func (t *Tracker) AddEntry(ctx context.Context, key string, e *types.TimeEntry) (*types.TimeEntry, error) {
	created, err := t.client.AddWorklog(ctx, key, e.Start, e.Duration, e.Description)
	if err != nil {
		return nil, err
	}
	out := *e
	out.ID = created.ID
	out.ItemKey = key
	return &out, nil
}

func (t *Tracker) UpdateEntry(ctx context.Context, key string, e *types.TimeEntry) error {
	return t.client.UpdateWorklog(ctx, key, e.ID, e.Start, e.Duration, e.Description)
}

func (t *Tracker) DeleteEntry(ctx context.Context, key, entryID string) error {
	return t.client.DeleteWorklog(ctx, key, entryID)
}

// Nodes returns nothing: JIRA has no per-item node concept.
func (t *Tracker) Nodes(ctx context.Context, key string, day time.Time) ([]types.WorkItemNode, error) {
	return nil, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
