package correlate

import (
	"fmt"
	"strings"

	"github.com/shadowhorn/shadowhorn/profile"
)

// Cleaned-data shapes. These mirror the cleaner's per-platform target schemas,
// which are fixed: the cleaner instructs the model to emit exactly these keys.

type cleanedGitHub struct {
	Username        string   `json:"username"`
	Name            string   `json:"name"`
	Bio             string   `json:"bio"`
	Email           string   `json:"email"`
	Location        string   `json:"location"`
	Company         string   `json:"company"`
	Website         string   `json:"website"`
	CreatedAt       string   `json:"created_at"`
	TopLanguages    []string `json:"top_languages"`
	Organizations   []string `json:"organizations"`
	FollowersSample []string `json:"followers_sample"`
	FollowingSample []string `json:"following_sample"`
	Repositories    []struct {
		Name        string `json:"name"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Language    string `json:"language"`
		Stars       int    `json:"stars"`
		Forks       int    `json:"forks"`
	} `json:"repositories"`
}

func (b *Builder) AddCleanedGitHub(data map[string]any) error {
	var doc cleanedGitHub
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.Username != "" {
		url := "https://github.com/" + doc.Username
		b.setUsername("github", profile.Username{Handle: doc.Username, URL: url, Bio: doc.Bio})
		b.setLink("github", url)
	}
	b.addName(doc.Name)
	b.addBio(doc.Bio)
	b.addEmail(doc.Email)
	b.addLocation(doc.Location)
	b.setLink("website", doc.Website)
	b.addEvent(doc.CreatedAt, "GitHub account created")
	if doc.Company != "" {
		b.addInterest("Works at " + doc.Company)
	}
	for _, lang := range doc.TopLanguages {
		b.addInterest(lang)
	}
	for _, org := range doc.Organizations {
		b.addInterest("Member of " + org)
	}

	for _, r := range doc.Repositories {
		b.repos = append(b.repos, profile.Repository{
			Name:        r.Name,
			URL:         r.URL,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.Stars,
			Forks:       r.Forks,
		})
	}

	for _, login := range doc.FollowersSample {
		if login != "" {
			b.relationships = append(b.relationships, profile.Relationship{
				Username: login, Platform: "GitHub", Type: "follower",
				URL: "https://github.com/" + login,
			})
		}
	}
	for _, login := range doc.FollowingSample {
		if login != "" {
			b.relationships = append(b.relationships, profile.Relationship{
				Username: login, Platform: "GitHub", Type: "following",
				URL: "https://github.com/" + login,
			})
		}
	}
	return nil
}

type cleanedTwitter struct {
	Username       string `json:"username"`
	Name           string `json:"name"`
	Bio            string `json:"bio"`
	Location       string `json:"location"`
	Website        string `json:"website"`
	CreatedAt      string `json:"created_at"`
	Verified       bool   `json:"verified"`
	FollowersCount int    `json:"followers_count"`
	RecentTweets   []struct {
		Text string `json:"text"`
		Date string `json:"date"`
		URL  string `json:"url"`
	} `json:"recent_tweets"`
	HashtagsUsed []string `json:"hashtags_used"`
}

func (b *Builder) AddCleanedTwitter(data map[string]any) error {
	var doc cleanedTwitter
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.Username != "" {
		url := "https://twitter.com/" + doc.Username
		b.setUsername("twitter", profile.Username{Handle: doc.Username, URL: url, Bio: doc.Bio})
		b.setLink("twitter", url)
	}
	b.addName(doc.Name)
	b.addBio(doc.Bio)
	b.addLocation(doc.Location)
	b.setLink("website", doc.Website)
	b.addEvent(doc.CreatedAt, "Twitter account created")
	if doc.Verified {
		b.addInterest("Verified Twitter account")
	}
	if doc.FollowersCount > 0 {
		b.addInterest(fmt.Sprintf("Twitter followers: %d", doc.FollowersCount))
	}
	for _, tag := range doc.HashtagsUsed {
		if tag != "" {
			b.addInterest("#" + strings.TrimPrefix(tag, "#"))
		}
	}

	for _, t := range doc.RecentTweets {
		b.posts = append(b.posts, profile.Post{
			Platform: "Twitter",
			Title:    truncate(strings.TrimSpace(t.Text), 120),
			URL:      t.URL,
			Date:     t.Date,
		})
	}
	return nil
}

type cleanedReddit struct {
	Username         string   `json:"username"`
	CreatedAt        string   `json:"created_at"`
	KarmaPost        int      `json:"karma_post"`
	KarmaComment     int      `json:"karma_comment"`
	SubredditsActive []string `json:"subreddits_active"`
	RecentPosts      []struct {
		Title     string `json:"title"`
		Subreddit string `json:"subreddit"`
		URL       string `json:"url"`
		Date      string `json:"date"`
	} `json:"recent_posts"`
	RecentComments []struct {
		Text      string `json:"text"`
		Subreddit string `json:"subreddit"`
		Date      string `json:"date"`
	} `json:"recent_comments"`
}

func (b *Builder) AddCleanedReddit(data map[string]any) error {
	var doc cleanedReddit
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.Username != "" {
		url := "https://reddit.com/user/" + doc.Username
		b.setUsername("reddit", profile.Username{Handle: doc.Username, URL: url})
		b.setLink("reddit", url)
	}
	b.addEvent(doc.CreatedAt, "Reddit account created")
	if doc.KarmaPost > 0 || doc.KarmaComment > 0 {
		b.addInterest(fmt.Sprintf("Reddit karma: %d post / %d comment", doc.KarmaPost, doc.KarmaComment))
	}
	for _, sub := range doc.SubredditsActive {
		if sub != "" {
			b.addInterest("r/" + strings.TrimPrefix(sub, "r/"))
		}
	}

	for _, p := range doc.RecentPosts {
		b.posts = append(b.posts, profile.Post{
			Platform: "Reddit", Title: p.Title, URL: p.URL, Date: p.Date,
		})
	}
	for _, c := range doc.RecentComments {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		b.posts = append(b.posts, profile.Post{
			Platform: "Reddit",
			Title:    "Comment: " + truncate(text, 100),
			Date:     c.Date,
		})
	}
	return nil
}

type cleanedSnapchat struct {
	Username        string   `json:"username"`
	DisplayName     string   `json:"display_name"`
	Bio             string   `json:"bio"`
	Location        string   `json:"location"`
	Interests       []string `json:"interests"`
	ExternalSites   []string `json:"external_sites"`
	SpotlightVideos []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Date  string `json:"date"`
	} `json:"spotlight_videos"`
}

func (b *Builder) AddCleanedSnapchat(data map[string]any) error {
	var doc cleanedSnapchat
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.Username != "" {
		url := "https://www.snapchat.com/add/" + doc.Username
		b.setUsername("snapchat", profile.Username{Handle: doc.Username, URL: url, Bio: doc.Bio})
		b.setLink("snapchat", url)
	}
	b.addName(doc.DisplayName)
	b.addBio(doc.Bio)
	b.addLocation(doc.Location)
	for _, interest := range doc.Interests {
		b.addInterest(interest)
	}
	for _, site := range doc.ExternalSites {
		if site == "" {
			continue
		}
		if !strings.HasPrefix(site, "http") {
			site = "https://" + site
		}
		b.setLink("website", site)
	}
	for _, v := range doc.SpotlightVideos {
		title := v.Title
		if title == "" {
			title = "Spotlight Video"
		}
		b.posts = append(b.posts, profile.Post{
			Platform: "Snapchat", Title: title, URL: v.URL, Date: v.Date,
		})
	}
	return nil
}

type cleanedStackOverflow struct {
	Username   string `json:"username"`
	Location   string `json:"location"`
	Website    string `json:"website"`
	CreatedAt  string `json:"created_at"`
	Reputation int    `json:"reputation"`
	Badges     struct {
		Gold   int `json:"gold"`
		Silver int `json:"silver"`
		Bronze int `json:"bronze"`
	} `json:"badges"`
	TopTags []string `json:"top_tags"`
}

func (b *Builder) AddCleanedStackOverflow(data map[string]any) error {
	var doc cleanedStackOverflow
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.Username != "" {
		b.setUsername("stackoverflow", profile.Username{Handle: doc.Username})
	}
	b.addLocation(doc.Location)
	b.setLink("website", doc.Website)
	b.addEvent(doc.CreatedAt, "StackOverflow account created")
	if doc.Reputation > 0 {
		b.addInterest(fmt.Sprintf("StackOverflow expert (rep: %d)", doc.Reputation))
	}
	if doc.Badges.Gold > 0 || doc.Badges.Silver > 0 || doc.Badges.Bronze > 0 {
		b.addInterest(fmt.Sprintf("SO badges: %d gold, %d silver, %d bronze",
			doc.Badges.Gold, doc.Badges.Silver, doc.Badges.Bronze))
	}
	for _, tag := range doc.TopTags {
		b.addInterest(tag)
	}
	return nil
}

type cleanedLinkedIn struct {
	Name            string   `json:"name"`
	Headline        string   `json:"headline"`
	About           string   `json:"about"`
	Location        string   `json:"location"`
	ProfileURL      string   `json:"profile_url"`
	CurrentCompany  string   `json:"current_company"`
	CurrentPosition string   `json:"current_position"`
	Skills          []string `json:"skills"`
	Experience      []struct {
		Company  string `json:"company"`
		Position string `json:"position"`
		Duration string `json:"duration"`
	} `json:"experience"`
	Education []struct {
		School string `json:"school"`
		Degree string `json:"degree"`
		Years  string `json:"years"`
	} `json:"education"`
}

func (b *Builder) AddCleanedLinkedIn(data map[string]any) error {
	var doc cleanedLinkedIn
	if err := decode(data, &doc); err != nil {
		return err
	}

	b.addName(doc.Name)
	if doc.Headline != "" {
		b.addBio(doc.Headline)
	}
	if doc.About != "" {
		b.addBio(doc.About)
	}
	b.addLocation(doc.Location)
	if doc.ProfileURL != "" {
		handle := doc.Name
		if handle == "" {
			handle = b.identifier
		}
		b.setUsername("linkedin", profile.Username{Handle: handle, URL: doc.ProfileURL, Bio: doc.Headline})
		b.setLink("linkedin", doc.ProfileURL)
	}
	if doc.CurrentCompany != "" {
		role := doc.CurrentPosition
		if role == "" {
			role = "Works"
		}
		b.addInterest(role + " at " + doc.CurrentCompany)
	}
	for _, skill := range doc.Skills {
		b.addInterest(skill)
	}

	for _, exp := range doc.Experience {
		if exp.Company == "" {
			continue
		}
		label := exp.Position
		if label == "" {
			label = "Role"
		}
		b.addEvent(exp.Duration, label+" at "+exp.Company)
	}
	for _, edu := range doc.Education {
		if edu.School == "" {
			continue
		}
		label := edu.Degree
		if label == "" {
			label = "Studied"
		}
		b.addEvent(edu.Years, label+" at "+edu.School)
	}
	return nil
}

type cleanedProfileOSINT struct {
	EmailsFound    []string `json:"emails_found"`
	NamesFound     []string `json:"names_found"`
	LocationsFound []string `json:"locations_found"`
	SocialProfiles []struct {
		Platform string `json:"platform"`
		URL      string `json:"url"`
		Username string `json:"username"`
	} `json:"social_profiles"`
}

func (b *Builder) AddCleanedProfileOSINT(data map[string]any) error {
	var doc cleanedProfileOSINT
	if err := decode(data, &doc); err != nil {
		return err
	}

	for _, email := range doc.EmailsFound {
		b.addEmail(email)
	}
	for _, name := range doc.NamesFound {
		b.addName(name)
	}
	for _, loc := range doc.LocationsFound {
		b.addLocation(loc)
	}
	for _, sp := range doc.SocialProfiles {
		platform := strings.ToLower(sp.Platform)
		if platform == "" || platform == "other" {
			platform = profile.PlatformFromURL(sp.URL)
		}
		if platform == "" {
			continue
		}
		b.setLink(platform, sp.URL)
		if sp.Username != "" {
			b.setUsername(platform, profile.Username{Handle: sp.Username, URL: sp.URL})
		}
	}
	return nil
}

type cleanedSearchEngines struct {
	NotableLinks []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"notable_links"`
	SocialProfilesFound []struct {
		Platform string `json:"platform"`
		URL      string `json:"url"`
	} `json:"social_profiles_found"`
}

func (b *Builder) AddCleanedSearchEngines(data map[string]any) error {
	var doc cleanedSearchEngines
	if err := decode(data, &doc); err != nil {
		return err
	}

	for _, link := range doc.NotableLinks {
		if link.Title == "" && link.URL == "" {
			continue
		}
		title := link.Title
		if title == "" {
			title = link.URL
		}
		b.posts = append(b.posts, profile.Post{
			Platform: "Web", Title: title, URL: link.URL,
		})
	}
	for _, sp := range doc.SocialProfilesFound {
		platform := strings.ToLower(sp.Platform)
		if platform == "" || platform == "other" {
			platform = profile.PlatformFromURL(sp.URL)
		}
		if platform != "" {
			b.setLink(platform, sp.URL)
		}
	}
	return nil
}

type cleanedBreachDirectory struct {
	FoundInBreaches  int  `json:"found_in_breaches"`
	PasswordsExposed bool `json:"passwords_exposed"`
	Breaches         []struct {
		Source string `json:"source"`
		Date   string `json:"date"`
	} `json:"breaches"`
}

func (b *Builder) AddCleanedBreachDirectory(data map[string]any) error {
	var doc cleanedBreachDirectory
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.FoundInBreaches > 0 {
		b.markCompromised(fmt.Sprintf("BreachDirectory reports %d leaked records.", doc.FoundInBreaches))
	}
	if doc.PasswordsExposed {
		b.markCompromised("Plaintext or cracked passwords exposed in breach data.")
	}
	for _, breach := range doc.Breaches {
		if breach.Source == "" {
			continue
		}
		b.addEvent(breach.Date, "Appeared in breach: "+breach.Source)
	}
	return nil
}

type cleanedCompromise struct {
	IsCompromised bool     `json:"is_compromised"`
	RiskLevel     string   `json:"risk_level"`
	BreachSources []string `json:"breach_sources"`
}

func (b *Builder) AddCleanedCompromise(data map[string]any) error {
	var doc cleanedCompromise
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.IsCompromised {
		note := "Credential compromise confirmed"
		if doc.RiskLevel != "" {
			note += " (risk: " + doc.RiskLevel + ")"
		}
		if len(doc.BreachSources) > 0 {
			note += ": " + strings.Join(doc.BreachSources, ", ")
		}
		b.markCompromised(note + ".")
	}
	return nil
}
