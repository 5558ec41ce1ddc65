// Package timelog orchestrates time-log operations: it drives the
// active tracker adapter and mirrors the result into the daily note.
// The tracker is the source of truth; the note mirror is best effort.
package timelog

import (
	"context"
	"fmt"
	"time"

	"github.com/notetrack/notetrack/internal/daynote"
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/tracker"
	"github.com/notetrack/notetrack/internal/types"
)

// Mirror is the daily-note side of the service. *daynote.Reconciler
// implements it; tests substitute a recorder.
type Mirror interface {
	Upsert(ctx context.Context, entry *types.TimeEntry) error
	Remove(ctx context.Context, entryID string) (bool, error)
}

var _ Mirror = (*daynote.Reconciler)(nil)

// Service ties a tracker adapter to the daily-note mirror.
type Service struct {
	Tracker tracker.WorklogTracker
	Mirror  Mirror
}

// List returns the entries for an issue on a day. A zero day lists all.
func (s *Service) List(ctx context.Context, key string, day time.Time) ([]types.TimeEntry, error) {
	return s.Tracker.ListEntries(ctx, key, day)
}

// Add creates the entry in the tracker, then mirrors it.
func (s *Service) Add(ctx context.Context, key string, entry *types.TimeEntry) (*types.TimeEntry, error) {
	created, err := s.Tracker.AddEntry(ctx, key, entry)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, created)
	return created, nil
}

// Edit rewrites an existing entry. When the tracker cannot update in
// place it deletes and recreates the entry; the recreated entry carries
// a new id, which becomes the entry's identity from here on, so the old
// mirrored block is removed before the new one is written.
func (s *Service) Edit(ctx context.Context, key string, entry *types.TimeEntry) (*types.TimeEntry, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("edit requires an entry id")
	}

	err := s.Tracker.UpdateEntry(ctx, key, entry)
	if err == nil {
		s.mirror(ctx, entry)
		return entry, nil
	}

	debug.Warnf("timelog: update of %s failed (%v), recreating", entry.ID, err)
	oldID := entry.ID
	if delErr := s.Tracker.DeleteEntry(ctx, key, oldID); delErr != nil {
		return nil, fmt.Errorf("update failed (%v) and delete-for-recreate failed: %w", err, delErr)
	}
	created, addErr := s.Tracker.AddEntry(ctx, key, entry)
	if addErr != nil {
		return nil, fmt.Errorf("entry %s deleted but recreate failed: %w", oldID, addErr)
	}

	if s.Mirror != nil {
		if _, rmErr := s.Mirror.Remove(ctx, oldID); rmErr != nil {
			debug.Warnf("timelog: removing stale note block for %s: %v", oldID, rmErr)
		}
	}
	s.mirror(ctx, created)
	return created, nil
}

// Delete removes the entry from the tracker and its mirrored block.
func (s *Service) Delete(ctx context.Context, key, entryID string) error {
	if err := s.Tracker.DeleteEntry(ctx, key, entryID); err != nil {
		return err
	}
	if s.Mirror != nil {
		if _, err := s.Mirror.Remove(ctx, entryID); err != nil {
			debug.Warnf("timelog: removing note block for %s: %v", entryID, err)
		}
	}
	return nil
}

// Nodes proxies the tracker's node listing.
func (s *Service) Nodes(ctx context.Context, key string, day time.Time) ([]types.WorkItemNode, error) {
	return s.Tracker.Nodes(ctx, key, day)
}

func (s *Service) mirror(ctx context.Context, entry *types.TimeEntry) {
	if s.Mirror == nil {
		return
	}
	if err := s.Mirror.Upsert(ctx, entry); err != nil {
		debug.Warnf("timelog: mirroring entry %s to daily note: %v", entry.ID, err)
	}
}
