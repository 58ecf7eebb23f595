package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shadowhorn/shadowhorn/correlate"
	"github.com/shadowhorn/shadowhorn/profile"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		identifier string
		want       bool
	}{
		{"https://twitter.com/alice", true},
		{"https://x.com/alice", true},
		{"@alice", true},
		{"alice", false},
		{"https://github.com/alice", false},
	}

	for _, tt := range tests {
		if got := Match(tt.identifier); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.identifier, got, tt.want)
		}
	}
}

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@alice", "alice"},
		{"https://twitter.com/alice", "alice"},
		{"https://x.com/alice?lang=en", "alice"},
		{"alice", "alice"},
	}

	for _, tt := range tests {
		if got := extractUsername(tt.in); got != tt.want {
			t.Errorf("extractUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRequiresToken(t *testing.T) {
	if !AuthRequired() {
		t.Fatal("AuthRequired must report that a credential is needed")
	}
	if _, err := New(context.Background()); err == nil {
		t.Fatal("New without a bearer token must fail")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization = %q", got)
		}
		switch r.URL.Path {
		case "/users/by/username/alice":
			w.Write([]byte(`{"data":{"id":"99","username":"alice","name":"Alice Johnson",
				"description":"Distributed systems.","location":"Berlin","created_at":"2015-03-01T00:00:00Z"}}`))
		case "/users/99/tweets":
			w.Write([]byte(`{"data":[
				{"id":"1","text":"shipping a new release","created_at":"2026-08-01T10:00:00Z","public_metrics":{"like_count":4}},
				{"id":"2","text":"conference next week","created_at":"2026-08-02T10:00:00Z","public_metrics":{"like_count":9}}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL), WithBearerToken("tok-1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := c.Fetch(context.Background(), "@alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	p := correlate.Correlate([]profile.RawDocument{doc}, "alice")
	if p.Usernames["twitter"].Handle != "alice" {
		t.Errorf("handle = %q", p.Usernames["twitter"].Handle)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q", p.Name)
	}
	if len(p.Posts) != 2 {
		t.Errorf("posts = %d, want 2", len(p.Posts))
	}
	if p.Posts[0].URL != "https://twitter.com/alice/status/1" {
		t.Errorf("post URL = %q", p.Posts[0].URL)
	}
}

func TestFetchUnknownUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{}}`)) // v2 returns 200 with empty data for some lookups
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL), WithBearerToken("tok-1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Fetch(context.Background(), "@ghost"); err == nil {
		t.Fatal("want error for missing user")
	}
}
