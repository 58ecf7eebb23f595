package backend

import (
	"encoding/json"

	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/profile"
)

// schemaDescription is embedded in every model prompt so output lands on the
// canonical profile keys. Coercion still runs afterwards; this just raises
// the hit rate.
const schemaDescription = `Respond with a single JSON object using exactly these keys:
{
  "name": "most complete real name found",
  "profile_type": "developer | professional | individual | online_profile | unknown",
  "about": "one-sentence description of the subject",
  "usernames": {"platform": {"handle": "...", "url": "...", "bio": "..."}},
  "bio": "merged bio text",
  "emails": ["..."],
  "primary_location": "...",
  "posts": [{"platform": "...", "title": "...", "url": "...", "date": "..."}],
  "repositories": [{"name": "...", "url": "...", "description": "...", "language": "...", "stars": 0, "forks": 0}],
  "activity_patterns": "...",
  "possible_interests": ["..."],
  "relationship_graph": [{"username": "...", "platform": "...", "type": "follower|following"}],
  "behavioral_anomalies": ["..."],
  "key_timelines": ["YYYY-MM-DD: event"],
  "links": {"label": "url"},
  "compromised": false,
  "summary": "...",
  "llm_analysis": "your analytical narrative"
}
Output only the JSON object. No markdown fences, no commentary.`

const systemPrompt = `You are an OSINT analyst. You correlate public data fragments about one subject into a single structured profile. Use only the data provided; never invent facts. Mark uncertain inferences as such inside llm_analysis.`

// buildMessages assembles the chat turns for a model correlation run.
func buildMessages(docs []profile.RawDocument, identifier, mode, prompt string) ([]llm.Message, error) {
	data, err := marshalDocs(docs)
	if err != nil {
		return nil, err
	}

	var task string
	switch mode {
	case ModeSelf:
		task = "Analysis request: " + prompt + "\n\n" +
			"Apply that request to the collected OSINT data below for subject " + identifier + ".\n\n"
	default:
		task = "Correlate the collected OSINT data below into one profile for subject " + identifier + ". " +
			"Cross-reference platforms: matching names, reused handles, shared links, overlapping locations.\n\n"
	}

	user := task + schemaDescription + "\n\nCollected data:\n" + data
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}, nil
}

// narrativeMessages asks a local model for the free-text llm_analysis field
// over an already-correlated profile. The structured result is settled by
// then; this is enrichment only.
func narrativeMessages(p *profile.Profile, prompt string) []llm.Message {
	task := "Write a short analytical narrative about the subject's online footprint, " +
		"exposure, and notable patterns. Plain prose, no JSON, no markdown."
	if prompt != "" {
		task = "Analysis request: " + prompt + "\n\n" + task
	}

	summary, err := json.MarshalIndent(map[string]any{
		"name":                 p.Name,
		"profile_type":         p.ProfileType,
		"usernames":            p.Usernames,
		"primary_location":     p.PrimaryLocation,
		"possible_interests":   p.PossibleInterests,
		"behavioral_anomalies": p.BehavioralAnomalies,
		"key_timelines":        p.KeyTimelines,
		"compromised":          p.Compromised,
		"summary":              p.Summary,
	}, "", "  ")
	if err != nil {
		summary = []byte(p.Summary)
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: task + "\n\nCorrelated profile:\n" + string(summary)},
	}
}
