// Package tracker defines the worklog-tracker plugin interface and the
// registry the integrations register into. Each external system (JIRA,
// Lark) provides an adapter; the time-log service and the sync commands
// drive whichever adapter the config names as active.
package tracker

import (
	"context"
	"time"

	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/idcache"
	"github.com/notetrack/notetrack/internal/statestore"
	"github.com/notetrack/notetrack/internal/types"
)

// Deps carries the shared infrastructure an adapter may need: the state
// store (token cache persistence) and the work-item identity cache.
type Deps struct {
	Store   *statestore.Store
	IDCache *idcache.Cache
}

// WorklogTracker is the adapter interface for an external tracker.
type WorklogTracker interface {
	// Name returns the lowercase identifier ("jira", "lark").
	Name() string

	// DisplayName returns the human-readable name ("JIRA", "Lark").
	DisplayName() string

	// Init configures the adapter. Called once before any operation.
	Init(ctx context.Context, cfg *config.Config, deps Deps) error

	// Validate checks that the adapter is configured and can connect.
	Validate(ctx context.Context) error

	// FetchIssue retrieves the raw issue JSON for a key, for projection.
	FetchIssue(ctx context.Context, key string) (map[string]interface{}, error)

	// ListEntries returns the worklog entries for an issue on a day.
	// A zero day means all entries.
	ListEntries(ctx context.Context, key string, day time.Time) ([]types.TimeEntry, error)

	// AddEntry creates a worklog entry and returns it with its
	// tracker-assigned ID populated.
	AddEntry(ctx context.Context, key string, e *types.TimeEntry) (*types.TimeEntry, error)

	// UpdateEntry rewrites an existing entry in place. Callers fall back
	// to delete-then-recreate when this fails.
	UpdateEntry(ctx context.Context, key string, e *types.TimeEntry) error

	// DeleteEntry removes an entry by ID.
	DeleteEntry(ctx context.Context, key, entryID string) error

	// Nodes lists the workable nodes for an issue on a date. Trackers
	// without a node concept return an empty slice.
	Nodes(ctx context.Context, key string, day time.Time) ([]types.WorkItemNode, error)
}
