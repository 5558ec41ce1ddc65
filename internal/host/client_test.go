package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notetrack/notetrack/internal/apierr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret")
}

func TestGetRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/database/getRow" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["database"] != "db1" || body["row"] != "row1" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"data":{"id":"row1","columns":[{"id":"c1","name":"状态","type":"select"}],"cells":{"c1":"cell1"}}}`))
	})

	row, err := c.GetRow(context.Background(), "db1", "row1")
	if err != nil {
		t.Fatalf("GetRow: %v", err)
	}
	col, cellID, ok := row.ColumnByName("状态")
	if !ok || col.ID != "c1" {
		t.Fatalf("ColumnByName = %+v, %v", col, ok)
	}
	if cellID != "cell1" {
		t.Errorf("cell id = %q", cellID)
	}
}

func TestApplyTransactionSendsOps(t *testing.T) {
	var got struct {
		Database string `json:"database"`
		Row      string `json:"row"`
		Ops      []Op   `json:"ops"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":null}`))
	})

	ops := []Op{
		{Type: OpEnsureOption, ColumnID: "c1", Option: &Option{Name: "Open", Color: 3}},
		{Type: OpSelectOption, ColumnID: "c1", CellID: "cell1", Option: &Option{Name: "Open", Color: 3}},
	}
	if err := c.ApplyTransaction(context.Background(), "db1", "row1", ops); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	if len(got.Ops) != 2 || got.Ops[0].Type != OpEnsureOption {
		t.Errorf("ops = %+v", got.Ops)
	}
}

func TestCallNotFoundIsPermanent(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such row", http.StatusNotFound)
	})

	_, err := c.GetRow(context.Background(), "db1", "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Service != "host" || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if calls != 1 {
		t.Errorf("4xx retried %d times, want 1 call", calls)
	}
}

func TestCallRetriesServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"notebooks":[{"id":"nb1","name":"Work","closed":false}]}}`))
	})

	nbs, err := c.ListNotebooks(context.Background())
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	if len(nbs) != 1 || nbs[0].ID != "nb1" {
		t.Errorf("notebooks = %+v", nbs)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestQueryBlocksByAttr(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "custom-nt-worklog" || body["value"] != "w42" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"data":{"blocks":[{"id":"b1","content":"1h 30m fix bug","attrs":{"custom-nt-worklog":"w42"}}]}}`))
	})

	blocks, err := c.QueryBlocksByAttr(context.Background(), "custom-nt-worklog", "w42")
	if err != nil {
		t.Fatalf("QueryBlocksByAttr: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Attrs["custom-nt-worklog"] != "w42" {
		t.Errorf("blocks = %+v", blocks)
	}
}
