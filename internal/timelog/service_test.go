package timelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/tracker"
	"github.com/notetrack/notetrack/internal/types"
)

// fakeTracker records calls and can be told to fail updates.
type fakeTracker struct {
	entries    map[string]*types.TimeEntry
	nextID     int
	updateErr  error
	deleteErr  error
	deletedIDs []string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{entries: map[string]*types.TimeEntry{}}
}

func (f *fakeTracker) Name() string                                              { return "fake" }
func (f *fakeTracker) DisplayName() string                                       { return "Fake" }
func (f *fakeTracker) Init(context.Context, *config.Config, tracker.Deps) error  { return nil }
func (f *fakeTracker) Validate(context.Context) error                            { return nil }
func (f *fakeTracker) FetchIssue(context.Context, string) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeTracker) ListEntries(_ context.Context, _ string, _ time.Time) ([]types.TimeEntry, error) {
	var out []types.TimeEntry
	for _, e := range f.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeTracker) AddEntry(_ context.Context, _ string, e *types.TimeEntry) (*types.TimeEntry, error) {
	f.nextID++
	copied := *e
	copied.ID = "id" + string(rune('0'+f.nextID))
	f.entries[copied.ID] = &copied
	return &copied, nil
}

func (f *fakeTracker) UpdateEntry(_ context.Context, _ string, e *types.TimeEntry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.entries[e.ID]; !ok {
		return errors.New("no such entry")
	}
	copied := *e
	f.entries[e.ID] = &copied
	return nil
}

func (f *fakeTracker) DeleteEntry(_ context.Context, _ string, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.entries, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeTracker) Nodes(context.Context, string, time.Time) ([]types.WorkItemNode, error) {
	return nil, nil
}

// fakeMirror records upserts and removals.
type fakeMirror struct {
	upserts   []string
	removed   []string
	upsertErr error
}

func (m *fakeMirror) Upsert(_ context.Context, e *types.TimeEntry) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, e.ID)
	return nil
}

func (m *fakeMirror) Remove(_ context.Context, id string) (bool, error) {
	m.removed = append(m.removed, id)
	return true, nil
}

func testEntry() *types.TimeEntry {
	return &types.TimeEntry{
		Start:       time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		Description: "review",
		Duration:    "1h",
	}
}

func TestAddMirrorsCreatedEntry(t *testing.T) {
	tr, m := newFakeTracker(), &fakeMirror{}
	s := &Service{Tracker: tr, Mirror: m}

	created, err := s.Add(context.Background(), "PROJ-1", testEntry())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created entry has no id")
	}
	if len(m.upserts) != 1 || m.upserts[0] != created.ID {
		t.Errorf("upserts = %v", m.upserts)
	}
}

func TestAddSucceedsWhenMirrorFails(t *testing.T) {
	tr := newFakeTracker()
	m := &fakeMirror{upsertErr: errors.New("notebook gone")}
	s := &Service{Tracker: tr, Mirror: m}

	created, err := s.Add(context.Background(), "PROJ-1", testEntry())
	if err != nil {
		t.Fatalf("Add returned mirror error: %v", err)
	}
	if _, ok := tr.entries[created.ID]; !ok {
		t.Error("entry not in tracker")
	}
}

func TestEditInPlace(t *testing.T) {
	tr, m := newFakeTracker(), &fakeMirror{}
	s := &Service{Tracker: tr, Mirror: m}

	created, _ := s.Add(context.Background(), "PROJ-1", testEntry())
	created.Description = "review and merge"
	updated, err := s.Edit(context.Background(), "PROJ-1", created)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("id changed on in-place update: %s -> %s", created.ID, updated.ID)
	}
	if tr.entries[created.ID].Description != "review and merge" {
		t.Error("tracker entry not updated")
	}
	if len(tr.deletedIDs) != 0 {
		t.Errorf("deleted = %v on in-place update", tr.deletedIDs)
	}
}

func TestEditFallsBackToRecreate(t *testing.T) {
	tr, m := newFakeTracker(), &fakeMirror{}
	s := &Service{Tracker: tr, Mirror: m}

	created, _ := s.Add(context.Background(), "PROJ-1", testEntry())
	oldID := created.ID

	tr.updateErr = errors.New("update unsupported")
	created.Description = "different"
	recreated, err := s.Edit(context.Background(), "PROJ-1", created)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if recreated.ID == oldID {
		t.Error("recreated entry kept the old id")
	}
	if _, ok := tr.entries[oldID]; ok {
		t.Error("old entry still in tracker")
	}
	if len(m.removed) != 1 || m.removed[0] != oldID {
		t.Errorf("stale block removals = %v, want [%s]", m.removed, oldID)
	}
	last := m.upserts[len(m.upserts)-1]
	if last != recreated.ID {
		t.Errorf("last upsert = %s, want new id %s", last, recreated.ID)
	}
}

func TestEditRecreateDeleteFailureSurfaces(t *testing.T) {
	tr, m := newFakeTracker(), &fakeMirror{}
	s := &Service{Tracker: tr, Mirror: m}

	created, _ := s.Add(context.Background(), "PROJ-1", testEntry())
	tr.updateErr = errors.New("update unsupported")
	tr.deleteErr = errors.New("delete forbidden")

	if _, err := s.Edit(context.Background(), "PROJ-1", created); err == nil {
		t.Fatal("expected error when both update and delete fail")
	}
	if _, ok := tr.entries[created.ID]; !ok {
		t.Error("original entry lost")
	}
}

func TestEditRequiresID(t *testing.T) {
	s := &Service{Tracker: newFakeTracker()}
	if _, err := s.Edit(context.Background(), "PROJ-1", testEntry()); err == nil {
		t.Fatal("expected error for entry without id")
	}
}

func TestDeleteRemovesMirror(t *testing.T) {
	tr, m := newFakeTracker(), &fakeMirror{}
	s := &Service{Tracker: tr, Mirror: m}

	created, _ := s.Add(context.Background(), "PROJ-1", testEntry())
	if err := s.Delete(context.Background(), "PROJ-1", created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(tr.entries) != 0 {
		t.Error("entry still in tracker")
	}
	if len(m.removed) != 1 || m.removed[0] != created.ID {
		t.Errorf("removed = %v", m.removed)
	}
}

func TestDeleteTrackerFailureSkipsMirror(t *testing.T) {
	tr, m := newFakeTracker(), &fakeMirror{}
	tr.deleteErr = errors.New("forbidden")
	s := &Service{Tracker: tr, Mirror: m}

	if err := s.Delete(context.Background(), "PROJ-1", "id1"); err == nil {
		t.Fatal("expected error")
	}
	if len(m.removed) != 0 {
		t.Errorf("mirror touched despite tracker failure: %v", m.removed)
	}
}
