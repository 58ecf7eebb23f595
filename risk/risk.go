// Package risk derives an exposure assessment from a correlated profile.
// Everything here is pure: same profile in, same assessment out, no model
// calls anywhere.
package risk

import (
	"fmt"

	"github.com/shadowhorn/shadowhorn/profile"
)

// Risk levels.
const (
	LevelCritical = "critical"
	LevelHigh     = "high"
	LevelMedium   = "medium"
	LevelLow      = "low"
)

// Scoring weights and thresholds.
const (
	weightCompromised  = 50
	weightManyAccounts = 15
	weightManyRepos    = 10
	weightPopularRepos = 5
	manyAccountsAt     = 3
	manyReposAt        = 10
	popularStarsAt     = 50
	criticalAt         = 60
	highAt             = 40
	mediumAt           = 20
)

// Assessment is the full risk output for one profile.
type Assessment struct {
	Score           int            `json:"score"`
	Level           string         `json:"level"`
	AttackSurface   []string       `json:"attack_surface"`
	Threats         []string       `json:"threats"`
	Recommendations []string       `json:"recommendations"`
	Pivots          []string       `json:"pivots"`
	Counts          map[string]int `json:"counts"`
}

// Derive computes the assessment for a profile.
func Derive(p *profile.Profile) Assessment {
	score := Score(p)
	return Assessment{
		Score:           score,
		Level:           Level(score),
		AttackSurface:   AttackSurface(p),
		Threats:         Threats(p),
		Recommendations: Recommendations(p),
		Pivots:          Pivots(p),
		Counts:          Counts(p),
	}
}

// Score computes the numeric risk score.
func Score(p *profile.Profile) int {
	score := 0
	if p.Compromised {
		score += weightCompromised
	}
	if len(p.Usernames) >= manyAccountsAt {
		score += weightManyAccounts
	}
	if len(p.Repositories) >= manyReposAt {
		score += weightManyRepos
	}
	if p.TotalStars() >= popularStarsAt {
		score += weightPopularRepos
	}
	return score
}

// Level maps a score to a label.
func Level(score int) string {
	switch {
	case score >= criticalAt:
		return LevelCritical
	case score >= highAt:
		return LevelHigh
	case score >= mediumAt:
		return LevelMedium
	default:
		return LevelLow
	}
}

// AttackSurface enumerates what an adversary can see.
func AttackSurface(p *profile.Profile) []string {
	surface := []string{}
	if n := len(p.Emails); n > 0 {
		surface = append(surface, fmt.Sprintf("%d email address(es) publicly linked to the subject", n))
	}
	for _, platform := range p.Platforms() {
		u := p.Usernames[platform]
		surface = append(surface, fmt.Sprintf("Active %s account (%s)", platform, u.Handle))
	}
	if n := len(p.Repositories); n > 0 {
		surface = append(surface, fmt.Sprintf("%d public code repositories exposing commit metadata", n))
	}
	if n := len(p.Posts); n > 0 {
		surface = append(surface, fmt.Sprintf("%d public posts available for language and schedule analysis", n))
	}
	if p.PrimaryLocation != "" {
		surface = append(surface, "Self-reported location: "+p.PrimaryLocation)
	}
	if n := len(p.RelationshipGraph); n > 0 {
		surface = append(surface, fmt.Sprintf("%d visible social connections", n))
	}
	return surface
}

// Threats lists plausible attack paths given the surface.
func Threats(p *profile.Profile) []string {
	threats := []string{}
	if p.Compromised {
		threats = append(threats, "Credential stuffing: leaked credentials can be replayed against every discovered account")
	}
	if len(p.Usernames) >= manyAccountsAt {
		threats = append(threats, "Cross-platform correlation: consistent handles let an adversary merge identities across sites")
	}
	if len(p.Emails) > 0 {
		threats = append(threats, "Targeted phishing: exposed addresses enable convincing spear-phishing lures")
	}
	if len(p.Repositories) > 0 {
		threats = append(threats, "Repository mining: commit history can leak internal hostnames, emails, and tooling")
	}
	if len(p.RelationshipGraph) > 0 {
		threats = append(threats, "Social engineering via connections: followers and following reveal trusted contacts to impersonate")
	}
	if len(threats) == 0 {
		threats = append(threats, "Minimal public footprint; residual risk limited to data broker aggregation")
	}
	return threats
}

// Recommendations suggests mitigations matched to the threats.
func Recommendations(p *profile.Profile) []string {
	recs := []string{}
	if p.Compromised {
		recs = append(recs,
			"Rotate passwords on every discovered account immediately",
			"Enable multi-factor authentication, preferring hardware keys over SMS")
	}
	if len(p.Usernames) >= manyAccountsAt {
		recs = append(recs, "Use distinct handles per platform to break cross-site correlation")
	}
	if len(p.Emails) > 0 {
		recs = append(recs, "Move public-facing contact to an alias address separate from login identities")
	}
	if len(p.Repositories) > 0 {
		recs = append(recs, "Audit repository commit history for secrets and private email addresses")
	}
	if p.PrimaryLocation != "" {
		recs = append(recs, "Remove or generalize self-reported location fields")
	}
	if len(recs) == 0 {
		recs = append(recs, "Maintain current exposure level; re-run collection periodically to catch drift")
	}
	return recs
}

// Pivots lists follow-up queries an investigator would run next.
func Pivots(p *profile.Profile) []string {
	pivots := []string{}
	for _, handle := range p.Handles() {
		pivots = append(pivots, fmt.Sprintf("Search handle %q on platforms not yet collected", handle))
	}
	for _, email := range p.Emails {
		pivots = append(pivots, fmt.Sprintf("Run breach and paste-site lookups for %s", email))
	}
	if p.Name != "" {
		pivots = append(pivots, fmt.Sprintf("People-search and public-records query for %q", p.Name))
	}
	for _, link := range p.Links {
		pivots = append(pivots, "Enumerate "+link+" for further identifiers")
	}
	return pivots
}

// Counts summarizes profile volume for report headers.
func Counts(p *profile.Profile) map[string]int {
	return map[string]int{
		"platforms":     len(p.Usernames),
		"emails":        len(p.Emails),
		"posts":         len(p.Posts),
		"repositories":  len(p.Repositories),
		"relationships": len(p.RelationshipGraph),
		"timelines":     len(p.KeyTimelines),
		"interests":     len(p.PossibleInterests),
	}
}
