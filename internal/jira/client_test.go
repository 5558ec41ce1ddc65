package jira

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notetrack/notetrack/internal/apierr"
)

func TestBasicAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"key":"PROJ-1","fields":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "alice", "tok")
	if _, err := c.GetIssue(context.Background(), "PROJ-1"); err != nil {
		t.Fatalf("GetIssue: %v", err)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:tok"))
	if gotAuth != want {
		t.Errorf("Authorization = %q, want %q", gotAuth, want)
	}
}

func TestGetIssueDecodesGenerically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/PROJ-7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"key":"PROJ-7","fields":{"status":{"name":"Open"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "t")
	issue, err := c.GetIssue(context.Background(), "PROJ-7")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}

	fields := issue["fields"].(map[string]interface{})
	status := fields["status"].(map[string]interface{})
	if status["name"] != "Open" {
		t.Errorf("status.name = %v, want Open", status["name"])
	}
}

func TestWorklogRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /rest/api/2/issue/PROJ-1/worklog":
			w.Write([]byte(`{"worklogs":[
				{"id":"100","comment":"review","started":"2026-03-01T09:00:00.000+0000","timeSpent":"1h 30m",
				 "author":{"displayName":"Alice","avatarUrls":{"48x48":"http://a/48.png"}}}
			]}`))
		case "POST /rest/api/2/issue/PROJ-1/worklog":
			w.Write([]byte(`{"id":"101","timeSpent":"2h","started":"2026-03-01T10:00:00.000+0000"}`))
		case "DELETE /rest/api/2/issue/PROJ-1/worklog/100":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "t")
	ctx := context.Background()

	logs, err := c.ListWorklogs(ctx, "PROJ-1")
	if err != nil {
		t.Fatalf("ListWorklogs: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != "100" || logs[0].TimeSpent != "1h 30m" {
		t.Errorf("worklogs = %+v", logs)
	}
	if logs[0].Author.DisplayName != "Alice" {
		t.Errorf("author = %+v", logs[0].Author)
	}

	created, err := c.AddWorklog(ctx, "PROJ-1", time.Now(), "2h", "dev")
	if err != nil {
		t.Fatalf("AddWorklog: %v", err)
	}
	if created.ID != "101" {
		t.Errorf("created.ID = %s, want 101", created.ID)
	}

	if err := c.DeleteWorklog(ctx, "PROJ-1", "100"); err != nil {
		t.Fatalf("DeleteWorklog: %v", err)
	}
}

func TestErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errorMessages":["no access"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "t")
	_, err := c.GetIssue(context.Background(), "PROJ-1")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v does not wrap *apierr.Error", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("Body is empty")
	}
}

func TestMissingCredentials(t *testing.T) {
	c := NewClient("", "", "")
	if _, err := c.GetIssue(context.Background(), "X-1"); err == nil {
		t.Error("client without URL succeeded")
	}

	c = NewClient("http://example.invalid", "u", "")
	if _, err := c.GetIssue(context.Background(), "X-1"); err == nil {
		t.Error("client without token succeeded")
	}
}
