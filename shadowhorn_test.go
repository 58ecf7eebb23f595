package shadowhorn

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewCollectorDefaultPlatforms(t *testing.T) {
	runner, err := NewCollector(context.Background())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	want := []string{"compromise", "github", "reddit", "stackoverflow"}
	if diff := cmp.Diff(want, runner.Platforms()); diff != "" {
		t.Errorf("platforms mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCollectorWithCredentials(t *testing.T) {
	runner, err := NewCollector(context.Background(),
		WithTwitterBearerToken("tok"),
		WithBreachDirectoryKey("key"))
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	want := []string{"breachdirectory", "compromise", "github", "reddit", "stackoverflow", "twitter"}
	if diff := cmp.Diff(want, runner.Platforms()); diff != "" {
		t.Errorf("platforms mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrelateConvenience(t *testing.T) {
	docs := []RawDocument{{
		Platform: "github",
		Data: map[string]any{
			"user": map[string]any{"login": "alice", "name": "Alice Johnson"},
		},
	}}

	p := Correlate(docs, "alice")
	if p.Usernames["github"].Handle != "alice" {
		t.Errorf("handle = %q, want alice", p.Usernames["github"].Handle)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q", p.Name)
	}
}

func TestCorrelateEmptyDocuments(t *testing.T) {
	p := Correlate(nil, "ghost")
	if p.Summary != "No OSINT data available" {
		t.Errorf("summary = %q", p.Summary)
	}
}
