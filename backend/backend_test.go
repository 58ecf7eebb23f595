package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/localmodel"
	"github.com/shadowhorn/shadowhorn/profile"
)

// fakeRemote scripts hosted-model responses.
type fakeRemote struct {
	text string
	err  error
}

func (f *fakeRemote) Chat(context.Context, string, []llm.Message) (string, error) {
	return f.text, f.err
}

func sampleDocs() []profile.RawDocument {
	return []profile.RawDocument{
		{Platform: "github", Identifier: "alice", Data: map[string]any{
			"user": map[string]any{"login": "alice", "name": "Alice Johnson"},
		}},
	}
}

func TestChooseExplicitPreference(t *testing.T) {
	e := New(WithRemote(&fakeRemote{}, []string{"gpt-4o"}))

	got, err := e.Choose(context.Background(), NameOpenAI)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if got != NameOpenAI {
		t.Errorf("backend = %q, want openai", got)
	}
}

func TestChooseExplicitButUnusable(t *testing.T) {
	e := New() // no remote wired

	_, err := e.Choose(context.Background(), NameOpenAI)
	if !errors.Is(err, profile.ErrNoBackend) {
		t.Errorf("error = %v, want ErrNoBackend", err)
	}
}

func TestChooseConfiguredDefault(t *testing.T) {
	e := New(
		WithRemote(&fakeRemote{}, []string{"gpt-4o"}),
		WithDefaultBackend(NameOpenAI),
	)

	got, err := e.Choose(context.Background(), "")
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if got != NameOpenAI {
		t.Errorf("backend = %q, want configured default", got)
	}
}

func TestChooseAutoFallsThroughToRemote(t *testing.T) {
	// No local client wired, so auto lands on the hosted backend.
	e := New(WithRemote(&fakeRemote{}, []string{"gpt-4o"}))

	got, err := e.Choose(context.Background(), NameAuto)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if got != NameOpenAI {
		t.Errorf("backend = %q, want openai", got)
	}
}

func TestChooseNothingAvailable(t *testing.T) {
	e := New()

	_, err := e.Choose(context.Background(), "")
	if !errors.Is(err, profile.ErrNoBackend) {
		t.Errorf("error = %v, want ErrNoBackend", err)
	}
}

func TestChooseUnknownBackend(t *testing.T) {
	e := New()

	_, err := e.Choose(context.Background(), "mainframe")
	if !errors.Is(err, profile.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestCorrelateFastModeNeedsNoModel(t *testing.T) {
	e := New() // nothing wired at all

	p, err := e.Correlate(context.Background(), sampleDocs(), "alice", ModeFast, "", "")
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q, fast mode must run the rule-based engine", p.Name)
	}
}

func TestCorrelateDeepCoercesModelOutput(t *testing.T) {
	remote := &fakeRemote{text: "```json\n" + `{"result":{"name":"Alice Johnson","compromised":"yes"}}` + "\n```"}
	e := New(WithRemote(remote, []string{"gpt-4o"}))

	p, err := e.Correlate(context.Background(), sampleDocs(), "alice", ModeDeep, NameOpenAI, "")
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q, wrapper must be unwrapped", p.Name)
	}
	if !p.Compromised {
		t.Error(`compromised = false, "yes" must coerce to true`)
	}
	if p.Usernames == nil || p.Posts == nil {
		t.Error("containers must be allocated by coercion")
	}
	if p.BackendUsed != NameOpenAI || p.ModelUsed != "gpt-4o" {
		t.Errorf("bookkeeping = %q/%q", p.BackendUsed, p.ModelUsed)
	}
}

func TestCorrelateDeepParseFailure(t *testing.T) {
	remote := &fakeRemote{text: "I am sorry, I cannot do that."}
	e := New(WithRemote(remote, []string{"gpt-4o"}))

	_, err := e.Correlate(context.Background(), sampleDocs(), "alice", ModeDeep, NameOpenAI, "")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error %T = %v, want *ParseError", err, err)
	}
	if parseErr.Raw == "" {
		t.Error("parse error must carry a raw snippet for diagnostics")
	}
}

func TestCorrelateDeepEmptyDocs(t *testing.T) {
	e := New(WithRemote(&fakeRemote{}, []string{"gpt-4o"}))

	_, err := e.Correlate(context.Background(), nil, "alice", ModeDeep, NameOpenAI, "")
	if !errors.Is(err, profile.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestCorrelateUnknownMode(t *testing.T) {
	e := New()

	_, err := e.Correlate(context.Background(), sampleDocs(), "alice", "turbo", "", "")
	if !errors.Is(err, profile.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func newLocalServer(t *testing.T, chatHandler http.HandlerFunc) *localmodel.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/chat", chatHandler)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return localmodel.New(localmodel.WithBaseURL(ts.URL))
}

func TestCorrelateLocalAddsNarrative(t *testing.T) {
	local := newLocalServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "Low exposure overall."},
		})
	})
	e := New(WithLocal(local, "llama3.2"))

	p, err := e.Correlate(context.Background(), sampleDocs(), "alice", ModeDeep, NameLocal, "")
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q, local backend must correlate rule-based", p.Name)
	}
	if p.LLMAnalysis != "Low exposure overall." {
		t.Errorf("llm_analysis = %q", p.LLMAnalysis)
	}
	if p.BackendUsed != NameLocal || p.ModelUsed != "llama3.2" {
		t.Errorf("bookkeeping = %q/%q", p.BackendUsed, p.ModelUsed)
	}
}

func TestCorrelateLocalNarrativeFailureSwallowed(t *testing.T) {
	local := newLocalServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	})
	e := New(WithLocal(local, "llama3.2"))

	p, err := e.Correlate(context.Background(), sampleDocs(), "alice", ModeDeep, NameLocal, "")
	if err != nil {
		t.Fatalf("Correlate: %v, narrative failure must not fail correlation", err)
	}
	if p.Name != "Alice Johnson" {
		t.Errorf("name = %q", p.Name)
	}
	if p.LLMAnalysis != "" {
		t.Errorf("llm_analysis = %q, want empty on narrative failure", p.LLMAnalysis)
	}
}

func TestValidateSelfPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		ok     bool
	}{
		{"osint question", "Summarize the OSINT exposure of this subject", true},
		{"risk question", "What risks do these accounts create?", true},
		{"breach question", "Focus on breach history and reused emails", true},
		{"off topic", "Write me a poem about the sea", false},
		{"empty", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSelfPrompt(tt.prompt)
			if tt.ok && err != nil {
				t.Errorf("prompt rejected: %v", err)
			}
			if !tt.ok && !errors.Is(err, profile.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestBuildMessagesIncludesData(t *testing.T) {
	messages, err := buildMessages(sampleDocs(), "alice", ModeDeep, "")
	if err != nil {
		t.Fatalf("buildMessages: %v", err)
	}
	if len(messages) != 2 || messages[0].Role != "system" {
		t.Fatalf("messages = %+v", messages)
	}
	user := messages[1].Content
	for _, want := range []string{"alice", `"login"`, "profile_type"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}
