package correlate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shadowhorn/shadowhorn/profile"
)

func TestCorrelateEmptyInput(t *testing.T) {
	p := Correlate(nil, "ghost")

	if p.Name != "ghost" {
		t.Errorf("name = %q, want identifier fallback", p.Name)
	}
	if !strings.Contains(p.Summary, "No OSINT data available") {
		t.Errorf("summary = %q, want no-data message", p.Summary)
	}
	if p.Compromised {
		t.Error("empty input must not be compromised")
	}
	if p.Usernames == nil || p.Posts == nil || p.Links == nil {
		t.Error("containers must be allocated even with no data")
	}
	if p.ProfileType != profile.TypeUnknown {
		t.Errorf("profile_type = %q, want %q", p.ProfileType, profile.TypeUnknown)
	}
}

func TestCorrelateGitHubAndBreach(t *testing.T) {
	docs := []profile.RawDocument{
		{
			Platform:   "github",
			Identifier: "alice",
			Data: map[string]any{
				"data": map[string]any{
					"user": map[string]any{
						"login":      "alice",
						"name":       "Alice Johnson",
						"bio":        "Distributed systems.",
						"location":   "Berlin",
						"created_at": "2015-03-01",
						"html_url":   "https://github.com/alice",
					},
					"repos": []any{
						map[string]any{
							"name":             "fastqueue",
							"html_url":         "https://github.com/alice/fastqueue",
							"stargazers_count": 60,
							"forks_count":      4,
							"language":         "Go",
						},
					},
				},
			},
		},
		{
			Platform:   "breachdirectory",
			Identifier: "alice",
			Data:       map[string]any{"found": 3},
		},
	}

	p := Correlate(docs, "alice")

	if got := p.Usernames["github"].Handle; got != "alice" {
		t.Errorf("github handle = %q, want alice", got)
	}
	if got := p.TotalStars(); got != 60 {
		t.Errorf("total stars = %d, want 60", got)
	}
	if !p.Compromised {
		t.Error("breach record must set compromised")
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q, want Alice Johnson", p.Name)
	}
	if p.ProfileType != profile.TypeDeveloper {
		t.Errorf("profile_type = %q, want %q", p.ProfileType, profile.TypeDeveloper)
	}
	if len(p.BehavioralAnomalies) != 1 || !strings.Contains(p.BehavioralAnomalies[0], "3 leaked records") {
		t.Errorf("anomalies = %v, want breach note", p.BehavioralAnomalies)
	}
	if !strings.Contains(p.Summary, "Compromised: YES") {
		t.Errorf("summary = %q, want compromised marker", p.Summary)
	}
	if want := "2015-03-01: GitHub account created"; len(p.KeyTimelines) != 1 || p.KeyTimelines[0] != want {
		t.Errorf("timelines = %v, want [%q]", p.KeyTimelines, want)
	}
}

func TestCorrelateLongestNameWins(t *testing.T) {
	docs := []profile.RawDocument{
		{Platform: "twitter", Data: map[string]any{
			"user": map[string]any{"username": "aj", "name": "Alice"},
		}},
		{Platform: "github", Data: map[string]any{
			"user": map[string]any{"login": "alice", "name": "Alice Johnson"},
		}},
	}

	p := Correlate(docs, "alice")
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q, want the longest candidate", p.Name)
	}
}

func TestCorrelateFirstLinkWins(t *testing.T) {
	docs := []profile.RawDocument{
		{Platform: "profile_osint", Data: map[string]any{
			"results": []any{
				map[string]any{"url": "https://github.com/alice", "platform": "github"},
			},
		}},
		{Platform: "github", Data: map[string]any{
			"user": map[string]any{"login": "alice2", "html_url": "https://github.com/alice2"},
		}},
	}

	p := Correlate(docs, "alice")
	if got := p.Links["github"]; got != "https://github.com/alice" {
		t.Errorf("github link = %q, want the first-discovered URL", got)
	}
}

func TestCorrelateDedupesPosts(t *testing.T) {
	docs := []profile.RawDocument{
		{Platform: "reddit", Data: map[string]any{
			"posts": []any{
				map[string]any{"title": "same title", "url": "https://reddit.com/1"},
				map[string]any{"title": "same title", "url": "https://reddit.com/2"},
				map[string]any{"title": "other", "url": "https://reddit.com/3"},
				map[string]any{"title": "", "url": "https://reddit.com/4"},
			},
		}},
	}

	p := Correlate(docs, "alice")
	if len(p.Posts) != 2 {
		t.Fatalf("posts = %d, want 2 after title dedupe", len(p.Posts))
	}
	if p.Posts[0].URL != "https://reddit.com/1" {
		t.Errorf("kept post URL = %q, want first occurrence", p.Posts[0].URL)
	}
}

func TestCorrelateCompromisedMonotonic(t *testing.T) {
	// A later clean signal must not reset an earlier compromise flag.
	docs := []profile.RawDocument{
		{Platform: "breachdirectory", Data: map[string]any{"found": 1}},
		{Platform: "compromise", Data: map[string]any{"status": "CLEAN"}},
	}

	p := Correlate(docs, "alice")
	if !p.Compromised {
		t.Error("compromised must stay set once any source reports it")
	}
}

func TestCorrelateUnknownPlatformIgnored(t *testing.T) {
	docs := []profile.RawDocument{
		{Platform: "myspace", Data: map[string]any{"anything": true}},
	}

	p := Correlate(docs, "alice")
	if !strings.Contains(p.Summary, "No OSINT data available") {
		t.Errorf("summary = %q, unknown platforms must not count as data", p.Summary)
	}
}

func TestCorrelateSearchEntities(t *testing.T) {
	docs := []profile.RawDocument{
		{Platform: "search_engines", Data: map[string]any{
			"results": []any{
				map[string]any{
					"url":      "https://pk.linkedin.com/in/alice",
					"platform": "other",
					"entities": []any{
						map[string]any{"type": "EMAIL", "text": "alice@example.com"},
						map[string]any{"type": "NAME", "text": "Alice Johnson"},
					},
				},
			},
		}},
	}

	p := Correlate(docs, "alice")
	if got := p.Links["linkedin"]; got != "https://pk.linkedin.com/in/alice" {
		t.Errorf("linkedin link = %q, want hostname-inferred platform", got)
	}
	if diff := cmp.Diff([]string{"alice@example.com"}, p.Emails); diff != "" {
		t.Errorf("emails mismatch (-want +got):\n%s", diff)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q, want entity name", p.Name)
	}
}

func TestCorrelateTwitterEnvelopes(t *testing.T) {
	bare := []profile.RawDocument{
		{Platform: "twitter", Data: map[string]any{
			"user":   map[string]any{"username": "aj"},
			"tweets": []any{map[string]any{"id": "1", "text": "hello world"}},
		}},
	}
	wrapped := []profile.RawDocument{
		{Platform: "twitter", Data: map[string]any{
			"user": map[string]any{"username": "aj"},
			"tweets": map[string]any{
				"data": []any{map[string]any{"id": "1", "text": "hello world"}},
			},
		}},
	}

	for name, docs := range map[string][]profile.RawDocument{"bare": bare, "wrapped": wrapped} {
		t.Run(name, func(t *testing.T) {
			p := Correlate(docs, "aj")
			if len(p.Posts) != 1 || p.Posts[0].Title != "hello world" {
				t.Errorf("posts = %+v, want the single tweet", p.Posts)
			}
			if got := p.Posts[0].URL; got != "https://twitter.com/aj/status/1" {
				t.Errorf("post URL = %q", got)
			}
		})
	}
}

func TestCorrelateCleanedCoverageType(t *testing.T) {
	record := func(platform string, data map[string]any) profile.CleanedRecord {
		return profile.CleanedRecord{Platform: platform, Identifier: "alice", Data: data}
	}

	tests := []struct {
		name string
		recs []profile.CleanedRecord
		want string
	}{
		{
			"comprehensive at four platforms",
			[]profile.CleanedRecord{
				record("github", map[string]any{"username": "alice"}),
				record("twitter", map[string]any{"username": "alice"}),
				record("reddit", map[string]any{"username": "alice"}),
				record("snapchat", map[string]any{"username": "alice"}),
			},
			profile.TypeComprehensive,
		},
		{
			"moderate at two platforms",
			[]profile.CleanedRecord{
				record("github", map[string]any{"username": "alice"}),
				record("reddit", map[string]any{"username": "alice"}),
			},
			profile.TypeModerate,
		},
		{
			"limited at one platform",
			[]profile.CleanedRecord{
				record("github", map[string]any{"username": "alice"}),
			},
			profile.TypeLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CorrelateCleaned(tt.recs, "alice")
			if p.ProfileType != tt.want {
				t.Errorf("profile_type = %q, want %q", p.ProfileType, tt.want)
			}
		})
	}
}

func TestCorrelateCleanedSkipsFailedRecords(t *testing.T) {
	recs := []profile.CleanedRecord{
		{Platform: "github", Data: map[string]any{"error": "model unavailable", "raw": "..."}},
		{Platform: "twitter", Data: map[string]any{"username": "aj"}},
	}

	p := CorrelateCleaned(recs, "alice")
	if _, ok := p.Usernames["github"]; ok {
		t.Error("failed cleaning records must be skipped")
	}
	if _, ok := p.Usernames["twitter"]; !ok {
		t.Error("healthy records must still contribute")
	}
}

func TestCorrelateCleanedLinkedIn(t *testing.T) {
	recs := []profile.CleanedRecord{
		{Platform: "linkedin", Data: map[string]any{
			"name":             "Alice Johnson",
			"headline":         "Staff Engineer",
			"profile_url":      "https://linkedin.com/in/alicejohnson",
			"current_company":  "Acme",
			"current_position": "Staff Engineer",
			"skills":           []any{"Go", "Kubernetes"},
			"experience": []any{
				map[string]any{"company": "Acme", "position": "Staff Engineer", "duration": "2021-"},
			},
		}},
	}

	p := CorrelateCleaned(recs, "alice")
	if _, ok := p.Usernames["linkedin"]; !ok {
		t.Fatal("linkedin username entry missing")
	}
	if p.Bio != "Staff Engineer" {
		t.Errorf("bio = %q, want headline", p.Bio)
	}
	found := false
	for _, interest := range p.PossibleInterests {
		if interest == "Staff Engineer at Acme" {
			found = true
		}
	}
	if !found {
		t.Errorf("interests = %v, want current role entry", p.PossibleInterests)
	}
}

func TestFinishCapsCollections(t *testing.T) {
	b := NewBuilder("alice")
	b.added = 1
	for i := range 60 {
		b.posts = append(b.posts, profile.Post{Platform: "Reddit", Title: strings.Repeat("t", i+1)})
		b.keyEvents = append(b.keyEvents, event{date: "2020-01-01", label: "e"})
		b.interests[strings.Repeat("i", i+1)] = struct{}{}
	}

	p := b.Finish()
	if len(p.Posts) != maxPosts {
		t.Errorf("posts = %d, want cap %d", len(p.Posts), maxPosts)
	}
	if len(p.KeyTimelines) != maxTimelines {
		t.Errorf("timelines = %d, want cap %d", len(p.KeyTimelines), maxTimelines)
	}
	if len(p.PossibleInterests) != maxInterests {
		t.Errorf("interests = %d, want cap %d", len(p.PossibleInterests), maxInterests)
	}
}

func TestJoinUniqueBios(t *testing.T) {
	got := joinUniqueBios([]string{"a", "b", "a", "c", "d"})
	if want := "a | b | c"; got != want {
		t.Errorf("joinUniqueBios = %q, want %q", got, want)
	}
}

func TestRenderTimelinesSorted(t *testing.T) {
	events := []event{
		{date: "2021-05-01", label: "later"},
		{date: "2015-03-01", label: "earlier"},
	}
	got := renderTimelines(events, 10)
	want := []string{"2015-03-01: earlier", "2021-05-01: later"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("timelines mismatch (-want +got):\n%s", diff)
	}
}
