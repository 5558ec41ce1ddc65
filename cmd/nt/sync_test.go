package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notetrack/notetrack/internal/colors"
	"github.com/notetrack/notetrack/internal/config"
	"github.com/notetrack/notetrack/internal/host"
	"github.com/notetrack/notetrack/internal/idcache"
	"github.com/notetrack/notetrack/internal/statestore"
)

// syncFixture serves both the JIRA and host endpoints runSync touches
// and records what was written.
type syncFixture struct {
	ops      []host.Op
	reloaded bool
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/PROJ-7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"key":"PROJ-7","fields":{"status":{"name":"Open"}}}`))
	})
	mux.HandleFunc("/api/database/findRow", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"row_id":"row1"}}`))
	})
	mux.HandleFunc("/api/database/getRow", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"row1","columns":[{"id":"c1","name":"状态","type":"select"}],"cells":{"c1":"cell1"}}}`))
	})
	mux.HandleFunc("/api/database/transaction", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Ops []host.Op `json:"ops"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode transaction: %v", err)
		}
		f.ops = append(f.ops, body.Ops...)
		_, _ = w.Write([]byte(`{"data":null}`))
	})
	mux.HandleFunc("/api/database/reload", func(w http.ResponseWriter, r *http.Request) {
		f.reloaded = true
		_, _ = w.Write([]byte(`{"data":null}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	var err error
	store, err = statestore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	idCa = idcache.Load(store)
	colMgr = colors.NewManager()
	cfg = &config.Config{
		ActiveTracker: "jira",
		Jira: config.JiraConfig{
			BaseURL:  srv.URL,
			Username: "dev",
			APIToken: "secret",
		},
		Host: config.HostConfig{
			BaseURL:    srv.URL,
			Token:      "tok",
			DatabaseID: "db1",
			KeyColumn:  "编号",
		},
		FieldMappings: map[string]string{"状态": "fields.status.name"},
	}
	return f
}

func TestRunSyncByKey(t *testing.T) {
	f := newSyncFixture(t)

	results, err := runSync(context.Background(), syncRequest{Keys: []string{"PROJ-7"}})
	if err != nil {
		t.Fatalf("runSync: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	r := results[0]
	if r.Error != "" || r.Key != "PROJ-7" || r.RowID != "row1" {
		t.Fatalf("result = %+v", r)
	}
	if r.Ops != 3 || len(f.ops) != 3 {
		t.Fatalf("ops = %d (%+v), want ensure + select + stamp", len(f.ops), f.ops)
	}
	if f.ops[0].Type != host.OpEnsureOption || f.ops[1].Type != host.OpSelectOption ||
		f.ops[2].Type != host.OpStampUpdated {
		t.Errorf("op order = %+v", f.ops)
	}
	if !f.reloaded {
		t.Error("view not reloaded after a change")
	}
}

func TestRunSyncNoReload(t *testing.T) {
	f := newSyncFixture(t)

	if _, err := runSync(context.Background(), syncRequest{Keys: []string{"PROJ-7"}, NoReload: true}); err != nil {
		t.Fatalf("runSync: %v", err)
	}
	if f.reloaded {
		t.Error("view reloaded despite NoReload")
	}
}

func TestRunSyncRequiresMappings(t *testing.T) {
	newSyncFixture(t)
	cfg.FieldMappings = nil

	if _, err := runSync(context.Background(), syncRequest{Keys: []string{"PROJ-7"}}); err == nil {
		t.Fatal("expected error with no mappings configured")
	}
}
