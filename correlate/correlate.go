// Package correlate merges per-platform OSINT documents into one canonical
// profile. Two engines share the same aggregation and finishing rules: the
// rule-based engine reads raw collector shapes, the cleaned engine reads the
// cleaner's fixed target schemas.
package correlate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shadowhorn/shadowhorn/profile"
)

const (
	maxBios      = 3
	maxInterests = 30
	maxPosts     = 50
	maxTimelines = 20
)

// Correlate runs the rule-based engine over raw collector documents. It never
// fails: an empty input yields a default profile with a "no data" summary,
// and a document whose shape cannot be decoded is skipped.
func Correlate(docs []profile.RawDocument, identifier string) *profile.Profile {
	b := NewBuilder(identifier)
	for _, doc := range docs {
		if err := b.Add(doc); err != nil {
			b.logger.Warn("skipping platform document", "platform", doc.Platform, "error", err)
		}
	}
	return b.Finish()
}

// CorrelateCleaned runs the cleaned-data engine over cleaner output. Records
// whose cleaning failed are skipped.
func CorrelateCleaned(recs []profile.CleanedRecord, identifier string) *profile.Profile {
	b := NewBuilder(identifier)
	b.cleaned = true
	for _, rec := range recs {
		if rec.Failed() {
			continue
		}
		if err := b.AddCleaned(rec); err != nil {
			b.logger.Warn("skipping cleaned record", "platform", rec.Platform, "error", err)
		}
	}
	return b.Finish()
}

// event is one dated timeline entry prior to rendering.
type event struct {
	date  string
	label string
}

// Builder accumulates per-platform contributions and owns all shared
// aggregation state. Each platform feeds it through a named Add method, which
// keeps ownership explicit and lets every platform's contribution be tested
// in isolation.
type Builder struct {
	identifier string
	logger     *slog.Logger
	cleaned    bool

	usernames     map[string]profile.Username
	usernameOrder []string
	names         []string
	bios          []string
	locations     []string
	emails        map[string]struct{}
	interests     map[string]struct{}
	links         map[string]string
	posts         []profile.Post
	repos         []profile.Repository
	relationships []profile.Relationship
	keyEvents     []event
	notes         []string
	compromised   bool
	added         int
}

// NewBuilder returns an empty Builder for the identifier.
func NewBuilder(identifier string) *Builder {
	return &Builder{
		identifier: identifier,
		logger:     slog.Default(),
		usernames:  map[string]profile.Username{},
		emails:     map[string]struct{}{},
		interests:  map[string]struct{}{},
		links:      map[string]string{},
	}
}

// WithLogger sets the logger used for per-platform skip warnings.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Add routes a raw collector document to its platform extraction. Unknown
// platforms are ignored without error so a new collector cannot break
// correlation for everything else.
func (b *Builder) Add(doc profile.RawDocument) error {
	if doc.Data == nil {
		return nil
	}
	b.added++
	switch strings.ToLower(doc.Platform) {
	case "github":
		return b.AddGitHub(doc.Data)
	case "twitter":
		return b.AddTwitter(doc.Data)
	case "reddit":
		return b.AddReddit(doc.Data)
	case "snapchat":
		return b.AddSnapchat(doc.Data)
	case "stackoverflow":
		return b.AddStackOverflow(doc.Data)
	case "profile_osint", "search_engines":
		return b.AddSearchResults(doc.Data)
	case "breachdirectory":
		return b.AddBreachDirectory(doc.Data)
	case "compromise":
		return b.AddCompromise(doc.Data)
	default:
		b.added--
		return nil
	}
}

// AddCleaned routes a cleaned record to its platform extraction over the
// cleaner's fixed target schema.
func (b *Builder) AddCleaned(rec profile.CleanedRecord) error {
	if rec.Data == nil {
		return nil
	}
	b.added++
	switch strings.ToLower(rec.Platform) {
	case "github":
		return b.AddCleanedGitHub(rec.Data)
	case "twitter":
		return b.AddCleanedTwitter(rec.Data)
	case "reddit":
		return b.AddCleanedReddit(rec.Data)
	case "snapchat":
		return b.AddCleanedSnapchat(rec.Data)
	case "stackoverflow":
		return b.AddCleanedStackOverflow(rec.Data)
	case "linkedin":
		return b.AddCleanedLinkedIn(rec.Data)
	case "profile_osint":
		return b.AddCleanedProfileOSINT(rec.Data)
	case "search_engines":
		return b.AddCleanedSearchEngines(rec.Data)
	case "breachdirectory":
		return b.AddCleanedBreachDirectory(rec.Data)
	case "compromise":
		return b.AddCleanedCompromise(rec.Data)
	default:
		b.added--
		return nil
	}
}

// Finish applies the shared finishing rules and returns the profile.
func (b *Builder) Finish() *profile.Profile {
	p := profile.New()
	p.Name = b.identifier

	if b.added == 0 {
		p.Summary = "No OSINT data available for this identifier yet. Run data collection first."
		profile.Classify(p)
		return p
	}

	// Longest candidate name wins: the longest form is typically the most
	// complete (full name over first name). Inherited tie-break; preserved
	// as-is.
	longest := ""
	for _, name := range b.names {
		if len(name) > len(longest) {
			longest = name
		}
	}
	if longest != "" {
		p.Name = longest
	}

	p.Bio = joinUniqueBios(b.bios)
	if len(b.locations) > 0 {
		p.PrimaryLocation = b.locations[0]
	}

	for _, platform := range b.usernameOrder {
		p.Usernames[platform] = b.usernames[platform]
	}
	p.Emails = sortedSet(b.emails)
	p.PossibleInterests = capStrings(sortedSet(b.interests), maxInterests)
	for label, link := range b.links {
		p.Links[label] = link
	}
	p.Posts = dedupePosts(b.posts, maxPosts)
	p.Repositories = append(p.Repositories, b.repos...)
	p.RelationshipGraph = append(p.RelationshipGraph, b.relationships...)
	p.Compromised = b.compromised
	p.BehavioralAnomalies = append(p.BehavioralAnomalies, b.notes...)
	p.KeyTimelines = renderTimelines(b.keyEvents, maxTimelines)
	p.ActivityPatterns = b.activityPatterns()
	p.Summary = b.summary(p)

	if b.cleaned {
		p.ProfileType = countBasedType(len(p.Usernames))
	}
	profile.Classify(p)
	return p
}

// countBasedType labels cleaned-data profiles by platform coverage.
func countBasedType(platforms int) string {
	switch {
	case platforms >= 4:
		return profile.TypeComprehensive
	case platforms >= 2:
		return profile.TypeModerate
	default:
		return profile.TypeLimited
	}
}

func (b *Builder) summary(p *profile.Profile) string {
	var bits []string
	if p.Name != "" {
		bits = append(bits, "Profile: "+p.Name)
	}
	if platforms := p.Platforms(); len(platforms) > 0 {
		bits = append(bits, "Platforms: "+strings.Join(platforms, ", "))
	}
	if n := len(p.Repositories); n > 0 {
		bits = append(bits, fmt.Sprintf("GitHub repositories: %d", n))
	}
	if n := len(p.Posts); n > 0 {
		bits = append(bits, fmt.Sprintf("Social posts collected: %d", n))
	}
	if b.compromised {
		bits = append(bits, "Compromised: YES")
	} else {
		bits = append(bits, "Compromised: NO")
	}
	if len(b.notes) > 0 {
		bits = append(bits, strings.Join(b.notes, "; "))
	}
	return strings.Join(bits, " | ")
}

func (b *Builder) activityPatterns() string {
	counts := map[string]int{}
	var order []string
	for _, post := range b.posts {
		platform := strings.ToLower(post.Platform)
		if platform == "" {
			continue
		}
		if _, seen := counts[platform]; !seen {
			order = append(order, platform)
		}
		counts[platform]++
	}

	var parts []string
	if len(order) > 0 {
		var perPlatform []string
		for _, platform := range order {
			perPlatform = append(perPlatform, fmt.Sprintf("%s=%d posts", platform, counts[platform]))
		}
		parts = append(parts, "Activity: "+strings.Join(perPlatform, ", "))
	}
	if len(b.repos) > 0 {
		parts = append(parts, fmt.Sprintf("GitHub repos observed: %d", len(b.repos)))
	}
	return strings.Join(parts, " | ")
}

// setUsername records a platform handle, keeping the first writer for a
// platform and preserving discovery order.
func (b *Builder) setUsername(platform string, u profile.Username) {
	if _, exists := b.usernames[platform]; exists {
		return
	}
	b.usernames[platform] = u
	b.usernameOrder = append(b.usernameOrder, platform)
}

// setLink records a labeled URL, first write wins per label.
func (b *Builder) setLink(label, link string) {
	if link == "" {
		return
	}
	if _, exists := b.links[label]; !exists {
		b.links[label] = link
	}
}

func (b *Builder) addName(name string) {
	if name != "" {
		b.names = append(b.names, name)
	}
}

func (b *Builder) addBio(bio string) {
	if bio != "" {
		b.bios = append(b.bios, bio)
	}
}

func (b *Builder) addLocation(location string) {
	if location != "" {
		b.locations = append(b.locations, location)
	}
}

func (b *Builder) addEmail(email string) {
	if email != "" {
		b.emails[email] = struct{}{}
	}
}

func (b *Builder) addInterest(interest string) {
	if interest != "" {
		b.interests[interest] = struct{}{}
	}
}

func (b *Builder) addEvent(date, label string) {
	if date != "" {
		b.keyEvents = append(b.keyEvents, event{date: date, label: label})
	}
}

func (b *Builder) markCompromised(note string) {
	b.compromised = true
	if note != "" {
		b.notes = append(b.notes, note)
	}
}

func joinUniqueBios(bios []string) string {
	seen := map[string]struct{}{}
	var unique []string
	for _, bio := range bios {
		if _, ok := seen[bio]; ok {
			continue
		}
		seen[bio] = struct{}{}
		unique = append(unique, bio)
		if len(unique) == maxBios {
			break
		}
	}
	return strings.Join(unique, " | ")
}

func dedupePosts(posts []profile.Post, limit int) []profile.Post {
	seen := map[string]struct{}{}
	out := []profile.Post{}
	for _, post := range posts {
		if post.Title == "" {
			continue
		}
		if _, dup := seen[post.Title]; dup {
			continue
		}
		seen[post.Title] = struct{}{}
		out = append(out, post)
		if len(out) == limit {
			break
		}
	}
	return out
}

func renderTimelines(events []event, limit int) []string {
	sorted := make([]event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].date < sorted[j].date })

	out := []string{}
	for _, ev := range sorted {
		out = append(out, ev.date+": "+ev.label)
		if len(out) == limit {
			break
		}
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func capStrings(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// decode re-marshals a loosely-typed JSON map into a platform-specific shape.
// Unknown fields are dropped and missing ones zero out, which is exactly the
// permissiveness correlation needs.
func decode(data map[string]any, dst any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode platform data: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode platform data: %w", err)
	}
	return nil
}
