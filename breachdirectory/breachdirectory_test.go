package breachdirectory

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
		{"alice@example.com", true},
		{"alice", true},
		{"https://github.com/alice", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Match(tt.identifier); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.identifier, got, tt.want)
		}
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("New without an API key must fail")
	}
}

func TestFetchFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-RapidAPI-Key"); got != "key-1" {
			t.Errorf("api key header = %q", got)
		}
		w.Write([]byte(`{"found":3,"result":[
			{"sources":["Collection1"],"has_password":true},
			{"sources":["LinkedIn2021"],"password":"hunter2"}
		]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL), WithAPIKey("key-1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := c.Fetch(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Data["found"] != 3 {
		t.Errorf("found = %v", doc.Data["found"])
	}
	if doc.Data["passwords_exposed"] != true {
		t.Error("passwords_exposed must be true")
	}

	p := correlate.Correlate([]profile.RawDocument{doc}, "alice@example.com")
	if !p.Compromised {
		t.Error("breach hits must mark the profile compromised")
	}
}

func TestFetchClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"found":0,"result":[]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL), WithAPIKey("key-1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := c.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	p := correlate.Correlate([]profile.RawDocument{doc}, "alice")
	if p.Compromised {
		t.Error("no hits must leave the profile clean")
	}
}
