package cleaner

import (
	"context"
	"strings"
	"testing"

	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/profile"
)

type fakeCaller struct {
	text     string
	err      error
	lastUser string
}

func (f *fakeCaller) Chat(_ context.Context, _ string, messages []llm.Message) (string, error) {
	for _, m := range messages {
		if m.Role == "user" {
			f.lastUser = m.Content
		}
	}
	return f.text, f.err
}

func githubDoc() profile.RawDocument {
	return profile.RawDocument{
		Platform:   "github",
		Identifier: "alice",
		Data:       map[string]any{"user": map[string]any{"login": "alice"}},
	}
}

func TestCleanSuccess(t *testing.T) {
	caller := &fakeCaller{text: "```json\n" + `{"username":"alice","name":"Alice Johnson"}` + "\n```"}
	c := New(caller, []string{"gpt-4o-mini"})

	rec := c.Clean(context.Background(), githubDoc())

	if rec.Failed() {
		t.Fatalf("record failed: %v", rec.Data)
	}
	if rec.Data["username"] != "alice" {
		t.Errorf("username = %v", rec.Data["username"])
	}
	if rec.Backend != "openai:gpt-4o-mini" {
		t.Errorf("backend = %q, want model-tagged backend", rec.Backend)
	}
	if rec.Platform != "github" || rec.Identifier != "alice" {
		t.Errorf("record identity = %s/%s", rec.Platform, rec.Identifier)
	}
	if rec.CleanedAt.IsZero() {
		t.Error("cleaned_at must be set")
	}
}

func TestCleanModelFailurePreservesRaw(t *testing.T) {
	caller := &fakeCaller{err: &llm.APIError{Kind: llm.KindInvalid, StatusCode: 401}}
	c := New(caller, []string{"gpt-4o-mini"})

	rec := c.Clean(context.Background(), githubDoc())

	if !rec.Failed() {
		t.Fatal("record must be marked failed")
	}
	raw, _ := rec.Data["raw"].(string)
	if !strings.Contains(raw, `"login"`) {
		t.Errorf("raw = %q, must preserve the input", raw)
	}
}

func TestCleanUnparseableOutput(t *testing.T) {
	caller := &fakeCaller{text: "I refuse."}
	c := New(caller, []string{"gpt-4o-mini"})

	rec := c.Clean(context.Background(), githubDoc())
	if !rec.Failed() {
		t.Fatal("unparseable output must produce a failed record")
	}
	errMsg, _ := rec.Data["error"].(string)
	if !strings.Contains(errMsg, "unparseable") {
		t.Errorf("error = %q", errMsg)
	}
}

// perModelCaller answers differently per model name.
type perModelCaller struct {
	texts map[string]string
	calls []string
}

func (p *perModelCaller) Chat(_ context.Context, model string, _ []llm.Message) (string, error) {
	p.calls = append(p.calls, model)
	return p.texts[model], nil
}

func TestCleanAdvancesOnUnparseableOutput(t *testing.T) {
	caller := &perModelCaller{texts: map[string]string{
		"gpt-5":  "no JSON here",
		"gpt-4o": `{"username":"alice"}`,
	}}
	c := New(caller, []string{"gpt-5", "gpt-4o"})

	rec := c.Clean(context.Background(), githubDoc())

	if rec.Failed() {
		t.Fatalf("record failed: %v", rec.Data)
	}
	if rec.Backend != "openai:gpt-4o" {
		t.Errorf("backend = %q, want the second model after a parse failure", rec.Backend)
	}
	if len(caller.calls) != 2 {
		t.Errorf("calls = %v", caller.calls)
	}
}

func TestCleanTruncatesHugeInput(t *testing.T) {
	doc := profile.RawDocument{
		Platform:   "reddit",
		Identifier: "alice",
		Data:       map[string]any{"blob": strings.Repeat("x", 40000)},
	}
	caller := &fakeCaller{text: `{"username":"alice"}`}
	c := New(caller, []string{"gpt-4o-mini"})

	c.Clean(context.Background(), doc)

	// System prompt plus schema plus the capped raw payload.
	if len(caller.lastUser) > maxRawChars+2000 {
		t.Errorf("prompt length = %d, raw input must be truncated", len(caller.lastUser))
	}
}

func TestCleaningMessagesUseGenericSchemaForUnknownPlatform(t *testing.T) {
	messages := buildCleaningMessages("mastodon", "alice", "{}")
	user := messages[1].Content
	if !strings.Contains(user, "notable_items") {
		t.Errorf("unknown platform must fall back to the generic schema, got:\n%s", user)
	}
}

func TestCleaningMessagesPlatformSchemas(t *testing.T) {
	tests := []struct {
		platform string
		wantKey  string
	}{
		{"github", "top_languages"},
		{"linkedin", "current_company"},
		{"breachdirectory", "passwords_exposed"},
		{"compromise", "is_compromised"},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			messages := buildCleaningMessages(tt.platform, "alice", "{}")
			if !strings.Contains(messages[1].Content, tt.wantKey) {
				t.Errorf("%s schema missing %q", tt.platform, tt.wantKey)
			}
		})
	}
}
