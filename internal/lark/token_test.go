package lark

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notetrack/notetrack/internal/statestore"
)

func tokenServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/open_api/authen/plugin_token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		*calls++
		w.Write([]byte(`{"code":0,"data":{"token":"tok-1","expire_time":7200}}`))
	}))
}

func TestTokenCachedUntilMargin(t *testing.T) {
	var calls int
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ts := NewTokenSource(nil, srv.URL, "id", "secret")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q", tok)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Within the safe window: cached, no second exchange.
	now = now.Add(2*time.Hour - tokenSafetyMargin - time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cached)", calls)
	}

	// Past expiry minus margin: refreshed.
	now = now.Add(2 * time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (refreshed)", calls)
	}
}

func TestTokenPersistedAcrossSources(t *testing.T) {
	var calls int
	srv := tokenServer(t, &calls)
	defer srv.Close()

	store, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ts := NewTokenSource(store, srv.URL, "id", "secret")
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A fresh source warm-starts from the blob and skips the exchange.
	ts2 := NewTokenSource(store, srv.URL, "id", "secret")
	tok, err := ts2.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q", tok)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestTokenExchangeErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":1001,"msg":"invalid secret"}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(nil, srv.URL, "id", "bad")
	if _, err := ts.Token(context.Background()); err == nil {
		t.Error("exchange with error code succeeded")
	}
}
