// Package profile defines the canonical correlated-profile schema and the
// permissive coercion that guarantees every profile conforms to it.
package profile

import (
	"errors"
	"net/url"
	"slices"
	"strings"
)

// Common errors returned by correlation packages.
var (
	ErrNoData       = errors.New("no OSINT data available")
	ErrNoBackend    = errors.New("no correlation backend is configured")
	ErrNotFound     = errors.New("no stored document")
	ErrInvalidInput = errors.New("invalid input")
)

// Profile type labels produced by classification.
const (
	TypeDeveloper     = "developer"
	TypeProfessional  = "professional"
	TypeIndividual    = "individual"
	TypeComprehensive = "comprehensive"
	TypeModerate      = "moderate"
	TypeLimited       = "limited"
	TypeOnlineProfile = "online_profile"
	TypeUnknown       = "unknown"
)

// Username is one platform handle entry in a Profile.
type Username struct {
	Handle string `json:"handle"`
	URL    string `json:"url"`
	Bio    string `json:"bio,omitempty"`
}

// Post is a social post, comment, or other dated activity item.
type Post struct {
	Platform string         `json:"platform"`
	Title    string         `json:"title"`
	URL      string         `json:"url,omitempty"`
	Date     string         `json:"date,omitempty"`
	Metrics  map[string]any `json:"metrics,omitempty"`
}

// Repository is a public code repository attributed to the subject.
type Repository struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Relationship is a follower/following edge discovered on a platform.
type Relationship struct {
	Username string `json:"username"`
	Platform string `json:"platform"`
	Type     string `json:"type"` // "follower" or "following"
	URL      string `json:"url,omitempty"`
}

// Profile is the canonical correlation output. Every instance, regardless of
// which backend produced it, carries all of these keys with the correct
// container type. Coerce enforces that contract.
//
//nolint:govet // fieldalignment: intentional layout mirrors the wire schema
type Profile struct {
	Name                string              `json:"name"`
	ProfileType         string              `json:"profile_type"`
	About               string              `json:"about"`
	Usernames           map[string]Username `json:"usernames"`
	Bio                 string              `json:"bio"`
	Emails              []string            `json:"emails"`
	PrimaryLocation     string              `json:"primary_location"`
	Posts               []Post              `json:"posts"`
	Repositories        []Repository        `json:"repositories"`
	ActivityPatterns    string              `json:"activity_patterns"`
	PossibleInterests   []string            `json:"possible_interests"`
	RelationshipGraph   []Relationship      `json:"relationship_graph"`
	BehavioralAnomalies []string            `json:"behavioral_anomalies"`
	KeyTimelines        []string            `json:"key_timelines"`
	Links               map[string]string   `json:"links"`
	Compromised         bool                `json:"compromised"`
	Summary             string              `json:"summary"`
	LLMAnalysis         string              `json:"llm_analysis"`

	// Bookkeeping filled by orchestrators, not by correlation itself.
	BackendUsed  string         `json:"backend_used,omitempty"`
	ModelUsed    string         `json:"model_used,omitempty"`
	FallbackFrom string         `json:"fallback_from,omitempty"`
	DeepCleanMeta map[string]any `json:"deep_clean_meta,omitempty"`
}

// New returns an empty Profile with all containers allocated.
func New() *Profile {
	return &Profile{
		Usernames:           map[string]Username{},
		Emails:              []string{},
		Posts:               []Post{},
		Repositories:        []Repository{},
		PossibleInterests:   []string{},
		RelationshipGraph:   []Relationship{},
		BehavioralAnomalies: []string{},
		KeyTimelines:        []string{},
		Links:               map[string]string{},
	}
}

// Platforms returns the sorted-insertion set of platforms with a username entry.
func (p *Profile) Platforms() []string {
	platforms := make([]string, 0, len(p.Usernames))
	for name := range p.Usernames {
		platforms = append(platforms, name)
	}
	slices.Sort(platforms)
	return platforms
}

// Handles returns every username handle in the profile.
func (p *Profile) Handles() []string {
	handles := make([]string, 0, len(p.Usernames))
	for _, platform := range p.Platforms() {
		if h := p.Usernames[platform].Handle; h != "" {
			handles = append(handles, h)
		}
	}
	return handles
}

// TotalStars sums stargazer counts across repositories.
func (p *Profile) TotalStars() int {
	total := 0
	for _, r := range p.Repositories {
		total += r.Stars
	}
	return total
}

// PlatformFromURL infers the platform a URL belongs to from its hostname.
// Handles regional subdomains like pk.linkedin.com and www prefixes.
// Returns "" when the host matches no known platform.
func PlatformFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case hasDomain(host, "linkedin.com"):
		return "linkedin"
	case hasDomain(host, "github.com"):
		return "github"
	case hasDomain(host, "twitter.com"), hasDomain(host, "x.com"):
		return "twitter"
	case hasDomain(host, "reddit.com"):
		return "reddit"
	case hasDomain(host, "youtube.com"), hasDomain(host, "youtu.be"):
		return "youtube"
	case hasDomain(host, "snapchat.com"):
		return "snapchat"
	case hasDomain(host, "stackoverflow.com"):
		return "stackoverflow"
	default:
		return ""
	}
}

func hasDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
