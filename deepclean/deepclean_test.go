package deepclean

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shadowhorn/shadowhorn/cleaner"
	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/profile"
	"github.com/shadowhorn/shadowhorn/store"
)

// scriptedCaller returns per-call responses keyed by a substring of the user
// prompt, so each platform's cleaning can be scripted independently.
type scriptedCaller struct {
	byPlatform map[string]string // platform name -> JSON response
	failAll    bool
}

func (s *scriptedCaller) Chat(_ context.Context, _ string, messages []llm.Message) (string, error) {
	if s.failAll {
		return "", &llm.APIError{Kind: llm.KindInvalid, StatusCode: 401, Message: "no key"}
	}
	var user string
	for _, m := range messages {
		if m.Role == "user" {
			user = m.Content
		}
	}
	for platform, response := range s.byPlatform {
		if strings.Contains(user, "Extract the "+platform+" data") {
			return response, nil
		}
	}
	return `{}`, nil
}

func newRunner(t *testing.T, caller llm.Caller) (*Runner, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cl := cleaner.New(caller, []string{"gpt-4o-mini"})
	return New(st, cl), st
}

func seed(t *testing.T, st *store.Store, identifier string, platforms ...string) {
	t.Helper()
	for _, platform := range platforms {
		err := st.SaveRawDocument(context.Background(), profile.RawDocument{
			Platform:    platform,
			Identifier:  identifier,
			CollectedAt: time.Now().UTC(),
			Data:        map[string]any{"seed": platform},
		})
		if err != nil {
			t.Fatalf("seed %s: %v", platform, err)
		}
	}
}

func drain(events chan Event) []Event {
	close(events)
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	caller := &scriptedCaller{byPlatform: map[string]string{
		"github":  `{"username":"alice","name":"Alice Johnson"}`,
		"twitter": `{"username":"aj"}`,
	}}
	r, st := newRunner(t, caller)
	seed(t, st, "alice", "github", "twitter")

	events := make(chan Event, 64)
	p, err := r.Run(context.Background(), "alice", events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := drain(events)
	var types []string
	for _, ev := range got {
		types = append(types, ev.Type)
		if ev.RunID == "" {
			t.Error("every event must carry the run id")
		}
	}

	want := []string{EventInit, EventLoading, EventCleaning, EventCleaned,
		EventCleaning, EventCleaned, EventCorrelating, EventComplete}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q (all: %v)", i, types[i], want[i], types)
		}
	}

	final := got[len(got)-1]
	if final.Profile == nil || final.Profile.Name != "Alice Johnson" {
		t.Errorf("complete event profile = %+v", final.Profile)
	}
	if p.DeepCleanMeta["run_id"] == "" {
		t.Error("deep clean metadata must record the run id")
	}
}

func TestRunStoresResults(t *testing.T) {
	caller := &scriptedCaller{byPlatform: map[string]string{
		"github": `{"username":"alice"}`,
	}}
	r, st := newRunner(t, caller)
	seed(t, st, "alice", "github")

	if _, err := r.Run(context.Background(), "alice", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recs, err := st.CleanedRecords(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CleanedRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].Failed() {
		t.Errorf("cleaned records = %+v", recs)
	}

	doc, err := st.Correlation(context.Background(), "alice", "deep_clean")
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	if doc.Result == nil || doc.Result.Usernames["github"].Handle != "alice" {
		t.Errorf("stored correlation = %+v", doc.Result)
	}
}

func TestRunNoDocuments(t *testing.T) {
	r, _ := newRunner(t, &scriptedCaller{})

	_, err := r.Run(context.Background(), "ghost", nil)

	var noData *NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("error %T = %v, want *NoDataError", err, err)
	}
	if !errors.Is(err, profile.ErrNoData) {
		t.Error("NoDataError must unwrap to ErrNoData")
	}
	if len(noData.Platforms) == 0 {
		t.Fatal("error must name the platforms checked")
	}
	for _, platform := range []string{"github", "reddit", "twitter"} {
		if !strings.Contains(err.Error(), platform) {
			t.Errorf("error = %v, must name %s among the platforms checked", err, platform)
		}
	}
}

func TestRunAllCleaningFailed(t *testing.T) {
	r, st := newRunner(t, &scriptedCaller{failAll: true})
	seed(t, st, "alice", "github", "twitter")

	_, err := r.Run(context.Background(), "alice", nil)

	var noData *NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("error %T = %v, want *NoDataError", err, err)
	}
	if len(noData.Platforms) != 2 {
		t.Errorf("platforms checked = %v, want both named", noData.Platforms)
	}
}

func TestRunPartialFailureStillCorrelates(t *testing.T) {
	// github cleans fine; twitter's model output is unusable.
	caller := &scriptedCaller{byPlatform: map[string]string{
		"github":  `{"username":"alice"}`,
		"twitter": `no json here`,
	}}
	r, st := newRunner(t, caller)
	seed(t, st, "alice", "github", "twitter")

	p, err := r.Run(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := p.Usernames["github"]; !ok {
		t.Error("healthy platform must still contribute")
	}
	failed, _ := p.DeepCleanMeta["platforms_failed"].([]any)
	if len(failed) != 1 || failed[0] != "twitter" {
		t.Errorf("platforms_failed = %v", failed)
	}
}

func TestRunResultIsCanonical(t *testing.T) {
	// A sparse cleaning result must still come back with every container
	// allocated and a derived profile type.
	caller := &scriptedCaller{byPlatform: map[string]string{
		"github": `{"username":"alice"}`,
	}}
	r, st := newRunner(t, caller)
	seed(t, st, "alice", "github")

	p, err := r.Run(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p.Emails == nil || p.Posts == nil || p.Repositories == nil ||
		p.PossibleInterests == nil || p.RelationshipGraph == nil ||
		p.BehavioralAnomalies == nil || p.KeyTimelines == nil || p.Links == nil {
		t.Error("every profile container must be allocated")
	}
	if p.ProfileType == "" {
		t.Error("profile type must be derived")
	}
	if p.BackendUsed != "deep_clean" || p.DeepCleanMeta["run_id"] == "" {
		t.Errorf("bookkeeping = %q / %v", p.BackendUsed, p.DeepCleanMeta)
	}
}
