package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchPRDiff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization = %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
		}
		if r.URL.Path != "/repos/owner/repo/pulls/42/files" {
			t.Errorf("Path = %q, want %q", r.URL.Path, "/repos/owner/repo/pulls/42/files")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"filename":"main.go","status":"modified","patch":"@@ -1,2 +1,3 @@\n ctx\n+new\n ctx","additions":1,"deletions":0,"sha":"abc123"},
			{"filename":"image.png","status":"added","additions":0,"deletions":0,"sha":"def456"}
		]`))
	}))
	defer server.Close()

	c, err := NewClientWith("test-token", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewClientWith error: %v", err)
	}

	doc, err := c.FetchPRDiff(context.Background(), "owner", "repo", 42)
	if err != nil {
		t.Fatalf("FetchPRDiff error: %v", err)
	}
	if doc.PR.Number != 42 {
		t.Errorf("PR.Number = %d, want 42", doc.PR.Number)
	}
	if doc.PR.Repo != "owner/repo" {
		t.Errorf("PR.Repo = %q, want %q", doc.PR.Repo, "owner/repo")
	}
	if len(doc.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(doc.Files))
	}
	if doc.Files[0].Path != "main.go" || doc.Files[0].Additions != 1 {
		t.Errorf("Files[0] = %+v", doc.Files[0])
	}
	if doc.Files[1].Patch != "" {
		t.Errorf("Files[1].Patch = %q, want empty for binary file", doc.Files[1].Patch)
	}
}

func TestFetchPRDiff_Pagination(t *testing.T) {
	var calls int
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`[{"filename":"b.go","status":"added"}]`))
			return
		}
		w.Header().Set("Link", `<`+server.URL+`/repos/owner/repo/pulls/1/files?page=2>; rel="next"`)
		w.Write([]byte(`[{"filename":"a.go","status":"modified"}]`))
	}))
	defer server.Close()

	c, err := NewClientWith("test-token", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewClientWith error: %v", err)
	}

	doc, err := c.FetchPRDiff(context.Background(), "owner", "repo", 1)
	if err != nil {
		t.Fatalf("FetchPRDiff error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(doc.Files) != 2 || doc.Files[0].Path != "a.go" || doc.Files[1].Path != "b.go" {
		t.Errorf("Files = %+v", doc.Files)
	}
}

func TestFetchPRDiff_404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	c, err := NewClientWith("test-token", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewClientWith error: %v", err)
	}

	_, err = c.FetchPRDiff(context.Background(), "owner", "repo", 99)
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found message", err)
	}
}

func TestFetchPRDiff_401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	c, err := NewClientWith("bad-token", server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewClientWith error: %v", err)
	}

	_, err = c.FetchPRDiff(context.Background(), "owner", "repo", 1)
	if err == nil {
		t.Fatal("Expected error for 401")
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("error = %v, want authentication failure", err)
	}
}

func TestParsePRURL(t *testing.T) {
	tests := []struct {
		url     string
		owner   string
		repo    string
		number  int
		wantErr bool
	}{
		{"https://github.com/octo/widgets/pull/123", "octo", "widgets", 123, false},
		{"http://ghe.example.com/team/svc/pull/7", "team", "svc", 7, false},
		{"https://github.com/octo/widgets/pull/123/files", "octo", "widgets", 123, false},
		{"https://github.com/octo/widgets", "", "", 0, true},
		{"not a url", "", "", 0, true},
	}
	for _, tt := range tests {
		owner, repo, number, err := ParsePRURL(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePRURL(%q): expected error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePRURL(%q) error: %v", tt.url, err)
			continue
		}
		if owner != tt.owner || repo != tt.repo || number != tt.number {
			t.Errorf("ParsePRURL(%q) = %q, %q, %d", tt.url, owner, repo, number)
		}
	}
}
