package compromise

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shadowhorn/shadowhorn/correlate"
	"github.com/shadowhorn/shadowhorn/profile"
)

func TestFetchCompromised(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.String(), "search-by-email") {
			t.Errorf("emails must use the email route, got %s", r.URL)
		}
		w.Write([]byte(`{"message":"found","stealers":[
			{"stealer_family":"RedLine","date_compromised":"2025-11-02"},
			{"stealer_family":"Raccoon","date_compromised":"2026-01-15"}
		]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := c.Fetch(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Data["status"] != "COMPROMISED" {
		t.Errorf("status = %v", doc.Data["status"])
	}

	p := correlate.Correlate([]profile.RawDocument{doc}, "alice@example.com")
	if !p.Compromised {
		t.Error("stealer hits must mark the profile compromised")
	}
	if len(p.BehavioralAnomalies) == 0 || !strings.Contains(p.BehavioralAnomalies[0], "COMPROMISED") {
		t.Errorf("anomalies = %v", p.BehavioralAnomalies)
	}
}

func TestFetchAtRisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.String(), "search-by-username") {
			t.Errorf("usernames must use the username route, got %s", r.URL)
		}
		w.Write([]byte(`{"stealers":[{"stealer_family":"Lumma"}]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := c.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Data["status"] != "AT RISK" || doc.Data["compromise_score"] != 10 {
		t.Errorf("data = %v", doc.Data)
	}

	p := correlate.Correlate([]profile.RawDocument{doc}, "alice")
	if !p.Compromised {
		t.Error("AT RISK must mark the profile compromised")
	}
}

func TestFetchClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"message":"This email address is not associated with a computer infected by an info-stealer","stealers":[]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := c.Fetch(context.Background(), "clean@example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Data["status"] != "CLEAN" {
		t.Errorf("status = %v", doc.Data["status"])
	}

	p := correlate.Correlate([]profile.RawDocument{doc}, "clean@example.com")
	if p.Compromised {
		t.Error("clean result must not mark the profile compromised")
	}
}
