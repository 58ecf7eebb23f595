package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coerce normalizes an arbitrary JSON-decoded value into a canonical Profile.
// It is total: any JSON-serializable input (nil, scalars, lists, deeply
// nested garbage) degrades to defaults rather than an error. Model output
// double-wrapped as {"result": {...}} or {"profile": {...}} is unwrapped one
// level. The result is a stable fixed point: coercing a coerced profile's
// JSON form yields the same profile.
func Coerce(raw any) *Profile {
	src, _ := unwrap(raw).(map[string]any)

	p := New()
	p.Name = coerceString(src["name"])
	p.ProfileType = coerceString(src["profile_type"])
	p.About = coerceString(src["about"])
	p.Bio = coerceString(src["bio"])
	p.PrimaryLocation = coerceString(src["primary_location"])
	p.ActivityPatterns = coerceString(src["activity_patterns"])
	p.Summary = coerceString(src["summary"])
	p.LLMAnalysis = coerceString(src["llm_analysis"])

	p.Emails = coerceStringList(src["emails"])
	p.PossibleInterests = coerceStringList(src["possible_interests"])
	p.BehavioralAnomalies = coerceStringList(src["behavioral_anomalies"])
	p.KeyTimelines = coerceStringList(src["key_timelines"])

	p.Usernames = coerceUsernames(src["usernames"])
	p.Links = coerceLinks(src["links"])
	p.Posts = coercePosts(src["posts"])
	p.Repositories = coerceRepositories(src["repositories"])
	p.RelationshipGraph = coerceRelationships(src["relationship_graph"])
	p.Compromised = coerceBool(src["compromised"])

	p.BackendUsed = coerceString(src["backend_used"])
	p.ModelUsed = coerceString(src["model_used"])
	p.FallbackFrom = coerceString(src["fallback_from"])
	if meta, ok := src["deep_clean_meta"].(map[string]any); ok {
		p.DeepCleanMeta = meta
	}

	Classify(p)
	return p
}

// Normalize re-coerces a profile through its JSON form, returning the
// canonical fixed point with every container allocated.
func Normalize(p *Profile) *Profile {
	encoded, err := json.Marshal(p)
	if err != nil {
		return Coerce(nil)
	}
	var raw any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return Coerce(nil)
	}
	return Coerce(raw)
}

// unwrap peels one level of {"profile": {...}} or {"result": {...}} wrapping.
func unwrap(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if inner, ok := m["profile"].(map[string]any); ok {
		return inner
	}
	if inner, ok := m["result"].(map[string]any); ok {
		return inner
	}
	return m
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		// JSON numbers decode as float64; render integers without a fraction.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// coerceBool applies the permissive compromise-flag rules: booleans pass
// through, affirmative strings and non-zero numbers coerce to true, anything
// else is false.
func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "yes", "true", "1", "compromised":
			return true
		default:
			return false
		}
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return false
	}
}

func coerceStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, coerceString(item))
	}
	return out
}

func coerceInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case int64:
		return int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// coerceUsernames normalizes each entry to the {handle, url, bio} shape.
// Dict values fall back to a "username" key for the handle; non-dict values
// become a bare handle with no URL.
func coerceUsernames(v any) map[string]Username {
	out := map[string]Username{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for platform, entry := range m {
		if data, ok := entry.(map[string]any); ok {
			handle := coerceString(data["handle"])
			if handle == "" {
				handle = coerceString(data["username"])
			}
			out[platform] = Username{
				Handle: handle,
				URL:    coerceString(data["url"]),
				Bio:    coerceString(data["bio"]),
			}
			continue
		}
		out[platform] = Username{Handle: coerceString(entry)}
	}
	return out
}

func coerceLinks(v any) map[string]string {
	out := map[string]string{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for label, link := range m {
		out[label] = coerceString(link)
	}
	return out
}

func coercePosts(v any) []Post {
	items, ok := v.([]any)
	if !ok {
		return []Post{}
	}
	out := make([]Post, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		post := Post{
			Platform: coerceString(m["platform"]),
			Title:    coerceString(m["title"]),
			URL:      coerceString(m["url"]),
			Date:     coerceString(m["date"]),
		}
		if metrics, ok := m["metrics"].(map[string]any); ok {
			post.Metrics = metrics
		}
		out = append(out, post)
	}
	return out
}

func coerceRepositories(v any) []Repository {
	items, ok := v.([]any)
	if !ok {
		return []Repository{}
	}
	out := make([]Repository, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Repository{
			Name:        coerceString(m["name"]),
			URL:         coerceString(m["url"]),
			Description: coerceString(m["description"]),
			Language:    coerceString(m["language"]),
			Stars:       coerceInt(m["stars"]),
			Forks:       coerceInt(m["forks"]),
			LastUpdated: coerceString(m["last_updated"]),
		})
	}
	return out
}

func coerceRelationships(v any) []Relationship {
	items, ok := v.([]any)
	if !ok {
		return []Relationship{}
	}
	out := make([]Relationship, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Relationship{
			Username: coerceString(m["username"]),
			Platform: coerceString(m["platform"]),
			Type:     coerceString(m["type"]),
			URL:      coerceString(m["url"]),
		})
	}
	return out
}
