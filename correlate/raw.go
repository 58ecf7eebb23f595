package correlate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shadowhorn/shadowhorn/profile"
)

// Raw collector shapes. Each platform gets an explicit typed representation
// of its collector output so missing fields are a visible decision, not a
// silent nil.

type githubRaw struct {
	Data *githubRoot `json:"data"`
	githubRoot
}

type githubRoot struct {
	User struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		Bio       string `json:"bio"`
		Email     string `json:"email"`
		Location  string `json:"location"`
		Blog      string `json:"blog"`
		HTMLURL   string `json:"html_url"`
		CreatedAt string `json:"created_at"`
	} `json:"user"`
	Repos []struct {
		Name            string `json:"name"`
		HTMLURL         string `json:"html_url"`
		Description     string `json:"description"`
		Language        string `json:"language"`
		StargazersCount int    `json:"stargazers_count"`
		ForksCount      int    `json:"forks_count"`
		UpdatedAt       string `json:"updated_at"`
	} `json:"repos"`
	FollowersSample []githubUserRef `json:"followers_sample"`
	FollowingSample []githubUserRef `json:"following_sample"`
}

type githubUserRef struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// AddGitHub extracts from the GitHub collector's raw shape. The collector
// nests everything under a "data" key; older documents are flat.
func (b *Builder) AddGitHub(data map[string]any) error {
	var doc githubRaw
	if err := decode(data, &doc); err != nil {
		return err
	}
	root := doc.githubRoot
	if doc.Data != nil {
		root = *doc.Data
	}

	user := root.User
	b.addName(user.Name)
	if user.Login != "" {
		url := user.HTMLURL
		if url == "" {
			url = "https://github.com/" + user.Login
		}
		b.setUsername("github", profile.Username{Handle: user.Login, URL: url})
		b.setLink("github", url)
	}
	b.addBio(user.Bio)
	b.addEmail(user.Email)
	b.addLocation(user.Location)
	b.addEvent(user.CreatedAt, "GitHub account created")
	b.setLink("website", user.Blog)

	for _, r := range root.Repos {
		b.repos = append(b.repos, profile.Repository{
			Name:        r.Name,
			URL:         r.HTMLURL,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.StargazersCount,
			Forks:       r.ForksCount,
			LastUpdated: r.UpdatedAt,
		})
	}

	for _, f := range root.FollowersSample {
		if f.Login != "" {
			b.relationships = append(b.relationships, profile.Relationship{
				Username: f.Login, Platform: "GitHub", Type: "follower", URL: f.HTMLURL,
			})
		}
	}
	for _, f := range root.FollowingSample {
		if f.Login != "" {
			b.relationships = append(b.relationships, profile.Relationship{
				Username: f.Login, Platform: "GitHub", Type: "following", URL: f.HTMLURL,
			})
		}
	}
	return nil
}

type twitterRaw struct {
	User struct {
		Username    string `json:"username"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Location    string `json:"location"`
		URL         string `json:"url"`
		CreatedAt   string `json:"created_at"`
	} `json:"user"`
	Tweets    json.RawMessage `json:"tweets"`
	Followers json.RawMessage `json:"followers"`
	Following json.RawMessage `json:"following"`
}

type tweet struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	CreatedAt     string         `json:"created_at"`
	PublicMetrics map[string]any `json:"public_metrics"`
}

type twitterUserRef struct {
	Username string `json:"username"`
}

// AddTwitter extracts from the Twitter collector's raw shape. Tweet and
// follower lists arrive either bare or wrapped in a {"data": [...]} envelope
// depending on the API route used.
func (b *Builder) AddTwitter(data map[string]any) error {
	var doc twitterRaw
	if err := decode(data, &doc); err != nil {
		return err
	}

	user := doc.User
	b.addName(user.Name)
	handle := user.Username
	if handle != "" {
		url := "https://twitter.com/" + handle
		b.setUsername("twitter", profile.Username{Handle: handle, URL: url})
		b.setLink("twitter", url)
	}
	b.addBio(user.Description)
	b.addLocation(user.Location)
	b.addEvent(user.CreatedAt, "Twitter account created")
	b.setLink("website", user.URL)

	var tweets []tweet
	unwrapList(doc.Tweets, &tweets)
	for _, t := range tweets {
		post := profile.Post{
			Platform: "Twitter",
			Title:    truncate(strings.TrimSpace(t.Text), 120),
			Date:     t.CreatedAt,
			Metrics:  t.PublicMetrics,
		}
		if handle != "" && t.ID != "" {
			post.URL = "https://twitter.com/" + handle + "/status/" + t.ID
		}
		b.posts = append(b.posts, post)
	}

	var followers, following []twitterUserRef
	unwrapList(doc.Followers, &followers)
	unwrapList(doc.Following, &following)
	for _, f := range followers {
		if f.Username != "" {
			b.relationships = append(b.relationships, profile.Relationship{
				Username: f.Username, Platform: "Twitter", Type: "follower",
				URL: "https://twitter.com/" + f.Username,
			})
		}
	}
	for _, f := range following {
		if f.Username != "" {
			b.relationships = append(b.relationships, profile.Relationship{
				Username: f.Username, Platform: "Twitter", Type: "following",
				URL: "https://twitter.com/" + f.Username,
			})
		}
	}
	return nil
}

// unwrapList decodes either a bare JSON array or a {"data": [...]} envelope
// into dst (a pointer to a slice). Anything else leaves dst empty.
func unwrapList(raw json.RawMessage, dst any) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dst); err == nil {
		return
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Data) == 0 {
		return
	}
	_ = json.Unmarshal(envelope.Data, dst) //nolint:errcheck // empty list on mismatch is intended
}

type redditRaw struct {
	UserInfo struct {
		Username            string `json:"username"`
		AccountCreationDate string `json:"account_creation_date"`
	} `json:"user_info"`
	Posts []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		Timestamp string `json:"timestamp"`
		Upvotes   int    `json:"upvotes"`
		Downvotes int    `json:"downvotes"`
	} `json:"posts"`
	ActivityMetrics struct {
		MostActiveSubreddits [][]any `json:"most_active_subreddits"`
	} `json:"activity_metrics"`
}

// AddReddit extracts from the Reddit collector's raw shape.
func (b *Builder) AddReddit(data map[string]any) error {
	var doc redditRaw
	if err := decode(data, &doc); err != nil {
		return err
	}

	if doc.UserInfo.Username != "" {
		url := "https://reddit.com/user/" + doc.UserInfo.Username
		b.setUsername("reddit", profile.Username{Handle: doc.UserInfo.Username, URL: url})
		b.setLink("reddit", url)
	}
	b.addEvent(doc.UserInfo.AccountCreationDate, "Reddit account created")

	for _, p := range doc.Posts {
		b.posts = append(b.posts, profile.Post{
			Platform: "Reddit",
			Title:    p.Title,
			URL:      p.URL,
			Date:     p.Timestamp,
			Metrics:  map[string]any{"upvotes": p.Upvotes, "downvotes": p.Downvotes},
		})
	}

	// most_active_subreddits is a list of [name, count] pairs.
	for _, pair := range doc.ActivityMetrics.MostActiveSubreddits {
		if len(pair) > 0 {
			if name, ok := pair[0].(string); ok && name != "" {
				b.addInterest("r/" + name)
			}
		}
	}
	return nil
}

type snapchatRaw struct {
	NormalizedUsername string `json:"normalized_username"`
	ProfileInfo        struct {
		Username    string   `json:"username"`
		DisplayName string   `json:"display_name"`
		Bio         string   `json:"bio"`
		Location    string   `json:"location"`
		Interests   []string `json:"interests"`
		Verified    bool     `json:"verified"`
	} `json:"profile_info"`
	AccountDetails struct {
		FollowerCount int `json:"follower_count"`
	} `json:"account_details"`
	FollowerCount   int             `json:"follower_count"`
	AccountCreated  string          `json:"account_created"`
	ExternalSites   []string        `json:"external_sites"`
	SpotlightVideos []snapchatVideo `json:"spotlight_videos"`
	Highlights      []snapchatStory `json:"highlights"`
	Stories         []snapchatStory `json:"stories"`
	PublicStories   []snapchatStory `json:"public_stories"`
}

type snapchatVideo struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	UploadDate   string `json:"upload_date"`
	WatchCount   int    `json:"watch_count"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
}

type snapchatStory struct {
	Title     string `json:"title"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
	PostedAt  string `json:"posted_at"`
	Views     int    `json:"views"`
}

// AddSnapchat extracts from the Snapchat collector's raw shape.
func (b *Builder) AddSnapchat(data map[string]any) error {
	var doc snapchatRaw
	if err := decode(data, &doc); err != nil {
		return err
	}

	info := doc.ProfileInfo
	username := info.Username
	if username == "" {
		username = doc.NormalizedUsername
	}
	if username != "" {
		url := "https://www.snapchat.com/add/" + username
		b.setUsername("snapchat", profile.Username{Handle: username, URL: url, Bio: info.Bio})
		b.setLink("snapchat", url)
	}
	b.addName(info.DisplayName)
	b.addBio(info.Bio)
	b.addLocation(info.Location)
	b.addEvent(doc.AccountCreated, "Snapchat account created")
	if info.Verified {
		b.addInterest("Verified Snapchat account")
	}

	followers := doc.FollowerCount
	if followers == 0 {
		followers = doc.AccountDetails.FollowerCount
	}
	if followers > 0 {
		b.addInterest(fmt.Sprintf("Snapchat influencer (%d followers)", followers))
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

	const maxSnapItems = 5
	for i, v := range doc.SpotlightVideos {
		if i == maxSnapItems {
			break
		}
		title := v.Title
		if title == "" {
			title = "Spotlight Video"
		}
		b.posts = append(b.posts, profile.Post{
			Platform: "Snapchat", Title: title, URL: v.URL, Date: v.UploadDate,
			Metrics: map[string]any{"views": v.WatchCount, "likes": v.LikeCount, "comments": v.CommentCount},
		})
	}
	for i, h := range doc.Highlights {
		if i == maxSnapItems {
			break
		}
		b.posts = append(b.posts, profile.Post{
			Platform: "Snapchat",
			Title:    firstNonEmpty(h.Title, h.Name, "Story Highlight"),
			URL:      h.URL,
			Date:     firstNonEmpty(h.Date, h.CreatedAt),
		})
	}
	stories := doc.Stories
	if len(stories) == 0 {
		stories = doc.PublicStories
	}
	for i, s := range stories {
		if i == maxSnapItems {
			break
		}
		b.posts = append(b.posts, profile.Post{
			Platform: "Snapchat",
			Title:    firstNonEmpty(s.Title, "Story"),
			URL:      s.URL,
			Date:     firstNonEmpty(s.Date, s.PostedAt),
			Metrics:  map[string]any{"views": s.Views},
		})
	}
	return nil
}

type stackOverflowRaw struct {
	Users []struct {
		DisplayName  string `json:"display_name"`
		UserID       int    `json:"user_id"`
		Link         string `json:"link"`
		Location     string `json:"location"`
		Reputation   int    `json:"reputation"`
		CreationDate int64  `json:"creation_date"`
		WebsiteURL   string `json:"website_url"`
		BadgeCounts  struct {
			Gold   int `json:"gold"`
			Silver int `json:"silver"`
			Bronze int `json:"bronze"`
		} `json:"badge_counts"`
		TopTags []struct {
			TagName string `json:"tag_name"`
		} `json:"top_tags"`
	} `json:"users"`
}

// AddStackOverflow extracts from the StackExchange API raw shape. Only the
// first matching user is processed.
func (b *Builder) AddStackOverflow(data map[string]any) error {
	var doc stackOverflowRaw
	if err := decode(data, &doc); err != nil {
		return err
	}
	if len(doc.Users) == 0 {
		return nil
	}
	user := doc.Users[0]

	if user.DisplayName != "" && user.UserID != 0 {
		url := user.Link
		if url == "" {
			url = fmt.Sprintf("https://stackoverflow.com/users/%d", user.UserID)
		}
		b.setUsername("stackoverflow", profile.Username{Handle: user.DisplayName, URL: url})
		b.setLink("stackoverflow", url)
	}
	b.addName(user.DisplayName)
	b.addLocation(user.Location)
	if user.Reputation > 0 {
		b.addInterest(fmt.Sprintf("StackOverflow expert (rep: %d)", user.Reputation))
	}
	badges := user.BadgeCounts
	if badges.Gold > 0 || badges.Silver > 0 || badges.Bronze > 0 {
		b.addInterest(fmt.Sprintf("SO badges: %d gold, %d silver, %d bronze", badges.Gold, badges.Silver, badges.Bronze))
	}
	if user.CreationDate > 0 {
		date := time.Unix(user.CreationDate, 0).UTC().Format("2006-01-02")
		b.addEvent(date, "StackOverflow account created")
	}
	b.setLink("website", user.WebsiteURL)

	const maxTags = 10
	for i, tag := range user.TopTags {
		if i == maxTags {
			break
		}
		b.addInterest(tag.TagName)
	}
	return nil
}

type searchResultsRaw struct {
	Results []struct {
		URL      string `json:"url"`
		Platform string `json:"platform"`
		Snippet  string `json:"snippet"`
		Entities []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"entities"`
	} `json:"results"`
}

// AddSearchResults extracts discovered profile links from profile-OSINT and
// search-engine collector output. Hostnames correct mis-tagged platform
// labels, and only the first URL per platform is kept to limit noise.
func (b *Builder) AddSearchResults(data map[string]any) error {
	var doc searchResultsRaw
	if err := decode(data, &doc); err != nil {
		return err
	}

	for _, r := range doc.Results {
		if r.URL == "" {
			continue
		}
		platform := strings.ToLower(r.Platform)
		if platform == "" {
			platform = "other"
		}
		if inferred := profile.PlatformFromURL(r.URL); platform == "other" && inferred != "" {
			platform = inferred
		}

		switch platform {
		case "github", "linkedin", "twitter", "reddit", "youtube":
			b.setLink(platform, r.URL)
		}

		for _, ent := range r.Entities {
			switch ent.Type {
			case "EMAIL":
				b.addEmail(ent.Text)
			case "NAME":
				b.addName(ent.Text)
			}
		}
	}
	return nil
}

type breachDirectoryRaw struct {
	Found int `json:"found"`
}

// AddBreachDirectory flags compromise when the breach lookup found records.
func (b *Builder) AddBreachDirectory(data map[string]any) error {
	var doc breachDirectoryRaw
	if err := decode(data, &doc); err != nil {
		return err
	}
	if doc.Found > 0 {
		b.markCompromised(fmt.Sprintf("BreachDirectory reports %d leaked records.", doc.Found))
	}
	return nil
}

type compromiseRaw struct {
	Status          string `json:"status"`
	CompromiseScore any    `json:"compromise_score"`
}

// AddCompromise flags compromise on a positive stealer/credential check.
func (b *Builder) AddCompromise(data map[string]any) error {
	var doc compromiseRaw
	if err := decode(data, &doc); err != nil {
		return err
	}
	status := strings.ToUpper(doc.Status)
	if status == "COMPROMISED" || status == "AT RISK" {
		b.markCompromised(fmt.Sprintf("HudsonRock/COMB status: %s (score %v).", status, doc.CompromiseScore))
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
