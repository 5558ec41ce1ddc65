// Package daynote mirrors time-log entries into the host's daily note
// documents. Each mirrored entry is one list-item block tagged with a
// custom attribute carrying the tracker entry id, so later edits and
// deletions find their block by attribute rather than by text.
package daynote

import (
	"context"
	"fmt"

	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/duration"
	"github.com/notetrack/notetrack/internal/host"
	"github.com/notetrack/notetrack/internal/types"
)

// AttrEntryID is the block attribute that ties a daily-note block to a
// tracker time-log entry. Host attribute names must carry the custom-
// prefix.
const AttrEntryID = "custom-nt-worklog"

// Reconciler keeps daily notes in step with tracker entries.
type Reconciler struct {
	Client     *host.Client
	NotebookID string
}

// Upsert writes the entry into the daily note for its day, overwriting
// the previously mirrored block when one exists and appending a new
// tagged block otherwise. Mirroring is best effort: failures are
// reported to the caller, who logs and carries on, because the tracker
// write already succeeded.
func (r *Reconciler) Upsert(ctx context.Context, entry *types.TimeEntry) error {
	if r.NotebookID == "" {
		return fmt.Errorf("daily-note notebook not configured")
	}
	if entry.Start.IsZero() {
		return fmt.Errorf("entry %s has no start time", entry.ID)
	}

	docID, err := r.Client.DailyNote(ctx, r.NotebookID, entry.Start)
	if err != nil {
		return err
	}

	content := Render(entry)

	if block, err := r.findBlock(ctx, docID, entry.ID); err != nil {
		return err
	} else if block != nil {
		if block.Content == content {
			debug.Logf("daynote: block %s already current", block.ID)
			return nil
		}
		return r.Client.UpdateBlock(ctx, block.ID, content)
	}

	blockID, err := r.Client.AppendBlock(ctx, docID, content)
	if err != nil {
		return err
	}
	return r.Client.SetBlockAttrs(ctx, blockID, map[string]string{AttrEntryID: entry.ID})
}

// Remove deletes the mirrored block for an entry id, searching the
// attribute index across notebooks. Returns false when no block was
// tagged with the id.
func (r *Reconciler) Remove(ctx context.Context, entryID string) (bool, error) {
	blocks, err := r.Client.QueryBlocksByAttr(ctx, AttrEntryID, entryID)
	if err != nil {
		return false, err
	}
	if len(blocks) == 0 {
		return false, nil
	}
	if len(blocks) > 1 {
		debug.Warnf("daynote: %d blocks tagged with entry %s, deleting the first", len(blocks), entryID)
	}
	return true, r.Client.DeleteBlock(ctx, blocks[0].ID)
}

// findBlock looks for the entry's block among the document's children
// by attribute. Text matching is never used: content may have been
// hand-edited.
func (r *Reconciler) findBlock(ctx context.Context, docID, entryID string) (*host.Block, error) {
	blocks, err := r.Client.ChildBlocks(ctx, docID)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		if blocks[i].Attrs[AttrEntryID] == entryID {
			return &blocks[i], nil
		}
	}
	return nil, nil
}

// Render formats an entry as its daily-note line.
func Render(entry *types.TimeEntry) string {
	label := entry.ItemKey
	if entry.EntityName != "" {
		label = entry.EntityName
	}
	text := fmt.Sprintf("%s %s", duration.FormatHours(duration.ParseHours(entry.Duration)), entry.Description)
	if label != "" {
		text = fmt.Sprintf("%s [%s]", text, label)
	}
	return text
}
