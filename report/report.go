// Package report assembles investigation reports from a correlated profile:
// a structured comprehensive report exportable as JSON or YAML, and
// model-written narrative briefs aimed at specific audiences.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/shadowhorn/shadowhorn/profile"
	"github.com/shadowhorn/shadowhorn/risk"
)

// PlatformIntel is one platform's section in the comprehensive report.
type PlatformIntel struct {
	Platform string `json:"platform" yaml:"platform"`
	Handle   string `json:"handle" yaml:"handle"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Bio      string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Posts    int    `json:"posts" yaml:"posts"`
}

// IOCs are the concrete indicators an investigator can pivot on.
type IOCs struct {
	Emails    []string `json:"emails" yaml:"emails"`
	Usernames []string `json:"usernames" yaml:"usernames"`
	URLs      []string `json:"urls" yaml:"urls"`
}

// Report is the comprehensive report for one identifier.
//
//nolint:govet // fieldalignment: layout follows the rendered document order
type Report struct {
	Identifier       string           `json:"identifier" yaml:"identifier"`
	GeneratedAt      time.Time        `json:"generated_at" yaml:"generated_at"`
	ExecutiveSummary string           `json:"executive_summary" yaml:"executive_summary"`
	Risk             risk.Assessment  `json:"risk" yaml:"risk"`
	Platforms        []PlatformIntel  `json:"platform_intelligence" yaml:"platform_intelligence"`
	Indicators       IOCs             `json:"indicators" yaml:"indicators"`
	Timeline         []string         `json:"timeline" yaml:"timeline"`
	Footprint        string           `json:"footprint" yaml:"footprint"`
	Profile          *profile.Profile `json:"profile" yaml:"profile"`
}

// Build assembles the comprehensive report. Pure: no model calls, no I/O.
func Build(p *profile.Profile, identifier string) *Report {
	assessment := risk.Derive(p)
	return &Report{
		Identifier:       identifier,
		GeneratedAt:      time.Now().UTC(),
		ExecutiveSummary: executiveSummary(p, assessment, identifier),
		Risk:             assessment,
		Platforms:        platformIntel(p),
		Indicators:       extractIOCs(p),
		Timeline:         append([]string{}, p.KeyTimelines...),
		Footprint:        footprint(p, assessment),
		Profile:          p,
	}
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// YAML renders the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// Export renders the report in the named format ("json" or "yaml").
func (r *Report) Export(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return r.JSON()
	case "yaml", "yml":
		return r.YAML()
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", profile.ErrInvalidInput, format)
	}
}

func executiveSummary(p *profile.Profile, a risk.Assessment, identifier string) string {
	subject := p.Name
	if subject == "" {
		subject = identifier
	}

	parts := []string{
		fmt.Sprintf("Subject %q has a %s-risk public footprint (score %d/100)", subject, a.Level, a.Score),
		fmt.Sprintf("%d platform account(s) identified", len(p.Usernames)),
	}
	if p.Compromised {
		parts = append(parts, "credentials appear in breach or stealer data")
	}
	if n := len(p.Repositories); n > 0 {
		parts = append(parts, fmt.Sprintf("%d public repositories", n))
	}
	if n := len(p.Emails); n > 0 {
		parts = append(parts, fmt.Sprintf("%d exposed email address(es)", n))
	}
	return strings.Join(parts, "; ") + "."
}

func platformIntel(p *profile.Profile) []PlatformIntel {
	postCounts := map[string]int{}
	for _, post := range p.Posts {
		postCounts[strings.ToLower(post.Platform)]++
	}

	intel := []PlatformIntel{}
	for _, platform := range p.Platforms() {
		u := p.Usernames[platform]
		intel = append(intel, PlatformIntel{
			Platform: platform,
			Handle:   u.Handle,
			URL:      u.URL,
			Bio:      u.Bio,
			Posts:    postCounts[strings.ToLower(platform)],
		})
	}
	return intel
}

func extractIOCs(p *profile.Profile) IOCs {
	urlSet := map[string]bool{}
	for _, link := range p.Links {
		if link != "" {
			urlSet[link] = true
		}
	}
	for _, u := range p.Usernames {
		if u.URL != "" {
			urlSet[u.URL] = true
		}
	}
	urls := make([]string, 0, len(urlSet))
	for u := range urlSet {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	return IOCs{
		Emails:    append([]string{}, p.Emails...),
		Usernames: p.Handles(),
		URLs:      urls,
	}
}

func footprint(p *profile.Profile, a risk.Assessment) string {
	counts := a.Counts
	return fmt.Sprintf(
		"%d platforms, %d posts, %d repositories, %d relationships, %d timeline events",
		counts["platforms"], counts["posts"], counts["repositories"],
		counts["relationships"], counts["timelines"])
}
