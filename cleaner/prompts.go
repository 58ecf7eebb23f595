package cleaner

import "github.com/shadowhorn/shadowhorn/llm"

const cleaningSystemPrompt = `You extract structured facts from raw OSINT collector output. Use only values present in the input; omit keys you cannot fill rather than guessing. Output a single JSON object and nothing else.`

// platformSchemas are the target shapes per platform. Correlation decodes
// these keys, so the schema text and the decoder move together.
var platformSchemas = map[string]string{
	"github": `{
  "username": "", "name": "", "bio": "", "email": "", "location": "",
  "company": "", "website": "", "created_at": "YYYY-MM-DD",
  "repositories": [{"name": "", "url": "", "description": "", "language": "", "stars": 0, "forks": 0}],
  "top_languages": [""], "organizations": [""],
  "followers_sample": [""], "following_sample": [""]
}`,
	"twitter": `{
  "username": "", "name": "", "bio": "", "location": "", "website": "",
  "created_at": "YYYY-MM-DD", "verified": false, "followers_count": 0,
  "recent_tweets": [{"text": "", "date": "", "url": ""}],
  "hashtags_used": [""]
}`,
	"reddit": `{
  "username": "", "created_at": "YYYY-MM-DD",
  "karma_post": 0, "karma_comment": 0,
  "subreddits_active": [""],
  "recent_posts": [{"title": "", "subreddit": "", "url": "", "date": ""}],
  "recent_comments": [{"text": "first 100 characters only", "subreddit": "", "date": ""}]
}`,
	"snapchat": `{
  "username": "", "display_name": "", "bio": "", "location": "",
  "interests": [""], "external_sites": [""],
  "spotlight_videos": [{"title": "", "url": "", "date": ""}]
}`,
	"stackoverflow": `{
  "username": "", "location": "", "website": "", "created_at": "YYYY-MM-DD",
  "reputation": 0, "badges": {"gold": 0, "silver": 0, "bronze": 0},
  "top_tags": [""]
}`,
	"linkedin": `{
  "name": "", "headline": "", "about": "", "location": "", "profile_url": "",
  "current_company": "", "current_position": "",
  "skills": [""],
  "experience": [{"company": "", "position": "", "duration": ""}],
  "education": [{"school": "", "degree": "", "years": ""}]
}`,
	"profile_osint": `{
  "emails_found": [""], "names_found": [""], "locations_found": [""],
  "social_profiles": [{"platform": "", "url": "", "username": ""}]
}`,
	"search_engines": `{
  "notable_links": [{"title": "", "url": "", "snippet": ""}],
  "social_profiles_found": [{"platform": "", "url": ""}]
}`,
	"breachdirectory": `{
  "found_in_breaches": 0,
  "breaches": [{"source": "", "date": ""}],
  "passwords_exposed": false
}`,
	"compromise": `{
  "is_compromised": false,
  "breach_sources": [""],
  "risk_level": "low | medium | high | critical"
}`,
}

// genericSchema handles platforms added after this table was written.
const genericSchema = `{
  "username": "", "name": "", "bio": "", "location": "",
  "links": [""], "notable_items": [""]
}`

func buildCleaningMessages(platform, identifier, raw string) []llm.Message {
	schema := platformSchemas[platform]
	if schema == "" {
		schema = genericSchema
	}

	user := "Extract the " + platform + " data for subject " + identifier +
		" into this exact JSON shape:\n" + schema +
		"\n\nRaw collector output:\n" + raw
	return []llm.Message{
		{Role: "system", Content: cleaningSystemPrompt},
		{Role: "user", Content: user},
	}
}
