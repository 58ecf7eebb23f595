package report

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/shadowhorn/shadowhorn/profile"
)

func sampleProfile() *profile.Profile {
	p := profile.New()
	p.Name = "Alice Johnson"
	p.ProfileType = profile.TypeDeveloper
	p.Compromised = true
	p.Emails = []string{"alice@example.com"}
	p.PrimaryLocation = "Berlin"
	p.Usernames["github"] = profile.Username{Handle: "alice", URL: "https://github.com/alice"}
	p.Usernames["reddit"] = profile.Username{Handle: "alice_j", URL: "https://reddit.com/user/alice_j"}
	p.Links["github"] = "https://github.com/alice"
	p.Posts = append(p.Posts, profile.Post{Platform: "Reddit", Title: "Go question"})
	p.Repositories = append(p.Repositories, profile.Repository{Name: "toolkit", Stars: 60})
	p.KeyTimelines = append(p.KeyTimelines, "2015-03-01: GitHub account created")
	return p
}

func TestBuildComprehensiveReport(t *testing.T) {
	r := Build(sampleProfile(), "alice")

	if r.Identifier != "alice" {
		t.Errorf("identifier = %q", r.Identifier)
	}
	if r.GeneratedAt.IsZero() {
		t.Error("GeneratedAt must be stamped")
	}
	if !strings.Contains(r.ExecutiveSummary, "Alice Johnson") {
		t.Errorf("summary = %q, want subject name", r.ExecutiveSummary)
	}
	if !strings.Contains(r.ExecutiveSummary, "breach or stealer") {
		t.Errorf("summary = %q, want compromise note", r.ExecutiveSummary)
	}

	// Compromised (+50) plus popular repo (+5): high, not critical.
	if r.Risk.Score != 55 || r.Risk.Level != "high" {
		t.Errorf("risk = %d/%s, want 55/high", r.Risk.Score, r.Risk.Level)
	}

	if len(r.Platforms) != 2 {
		t.Fatalf("platforms = %d, want 2", len(r.Platforms))
	}
	if r.Platforms[0].Platform != "github" || r.Platforms[0].Handle != "alice" {
		t.Errorf("first platform = %+v", r.Platforms[0])
	}
	if r.Platforms[1].Posts != 1 {
		t.Errorf("reddit posts = %d, want 1", r.Platforms[1].Posts)
	}

	if len(r.Indicators.Emails) != 1 || r.Indicators.Emails[0] != "alice@example.com" {
		t.Errorf("IOC emails = %v", r.Indicators.Emails)
	}
	wantHandles := []string{"alice", "alice_j"}
	if !slices.Equal(r.Indicators.Usernames, wantHandles) {
		t.Errorf("IOC usernames = %v, want %v", r.Indicators.Usernames, wantHandles)
	}
	if len(r.Indicators.URLs) == 0 {
		t.Error("IOC URLs must include profile links")
	}

	if !strings.Contains(r.Footprint, "2 platforms") {
		t.Errorf("footprint = %q", r.Footprint)
	}
}

func TestBuildEmptyProfile(t *testing.T) {
	r := Build(profile.New(), "ghost")

	if r.Risk.Score != 0 || r.Risk.Level != "low" {
		t.Errorf("risk = %d/%s, want 0/low", r.Risk.Score, r.Risk.Level)
	}
	if len(r.Platforms) != 0 {
		t.Errorf("platforms = %v, want none", r.Platforms)
	}
	if !strings.Contains(r.ExecutiveSummary, "ghost") {
		t.Errorf("summary = %q, want identifier fallback", r.ExecutiveSummary)
	}
}

func TestExportFormats(t *testing.T) {
	r := Build(sampleProfile(), "alice")

	jsonOut, err := r.Export("json")
	if err != nil {
		t.Fatalf("Export json: %v", err)
	}
	if !strings.Contains(string(jsonOut), `"executive_summary"`) {
		t.Error("JSON export missing executive_summary key")
	}

	yamlOut, err := r.Export("yaml")
	if err != nil {
		t.Fatalf("Export yaml: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(yamlOut, &decoded); err != nil {
		t.Fatalf("YAML output does not parse: %v", err)
	}
	if decoded["identifier"] != "alice" {
		t.Errorf("yaml identifier = %v", decoded["identifier"])
	}

	if _, err := r.Export("pdf"); !errors.Is(err, profile.ErrInvalidInput) {
		t.Errorf("Export pdf error = %v, want ErrInvalidInput", err)
	}
}

type fakeNarrator struct {
	lastSystem string
	lastUser   string
	text       string
	err        error
}

func (f *fakeNarrator) Narrate(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.text, f.err
}

func TestBriefIncludesFindings(t *testing.T) {
	narrator := &fakeNarrator{text: "  The subject is highly exposed.  "}
	r := Build(sampleProfile(), "alice")

	text, err := Brief(context.Background(), narrator, r, AudienceThreatIntel)
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if text != "The subject is highly exposed." {
		t.Errorf("text = %q, want trimmed narration", text)
	}
	if !strings.Contains(narrator.lastUser, "alice@example.com") {
		t.Error("prompt must carry the findings")
	}
	if !strings.Contains(narrator.lastUser, "credential-based attacks") {
		t.Error("prompt must carry the audience framing")
	}
}

func TestBriefUnknownAudience(t *testing.T) {
	_, err := Brief(context.Background(), &fakeNarrator{}, Build(profile.New(), "x"), "executive")
	if !errors.Is(err, profile.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestBriefNarratorFailure(t *testing.T) {
	narrator := &fakeNarrator{err: errors.New("model offline")}
	_, err := Brief(context.Background(), narrator, Build(profile.New(), "x"), AudienceCombined)
	if err == nil || !strings.Contains(err.Error(), "model offline") {
		t.Errorf("error = %v, want wrapped narrator failure", err)
	}
}
