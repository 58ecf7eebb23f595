package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shadowhorn/shadowhorn/profile"
)

// Brief audiences.
const (
	AudienceCombined    = "combined"
	AudienceOSINT       = "osint"
	AudienceThreatIntel = "threat_intel"
	AudienceOffensive   = "offensive"
	AudienceMalware     = "malware"
)

// Narrator generates free text from a system and a user prompt.
// *backend.Engine satisfies this.
type Narrator interface {
	Narrate(ctx context.Context, system, user string) (string, error)
}

// audiencePrompts frame the same findings for different readers.
var audiencePrompts = map[string]string{
	AudienceCombined: "Write an intelligence brief covering identity, online " +
		"footprint, exposure, and recommended next steps for a general " +
		"security audience.",
	AudienceOSINT: "Write an OSINT analyst brief: focus on identity " +
		"resolution confidence, cross-platform correlation evidence, and " +
		"collection gaps worth closing.",
	AudienceThreatIntel: "Write a threat intelligence brief: focus on " +
		"exposure to credential-based attacks, breach history, and which " +
		"indicators should be monitored.",
	AudienceOffensive: "Write a red-team reconnaissance summary for an " +
		"authorized engagement: enumerate the attack surface and the most " +
		"promising social-engineering pretexts, without operational payloads.",
	AudienceMalware: "Write a brief on stealer-log and infostealer exposure: " +
		"what the compromise indicators imply about endpoint infection and " +
		"credential hygiene.",
}

// Audiences lists the supported brief audiences.
func Audiences() []string {
	return []string{
		AudienceCombined, AudienceOSINT, AudienceThreatIntel,
		AudienceOffensive, AudienceMalware,
	}
}

const briefSystemPrompt = "You are an intelligence analyst writing a short " +
	"professional brief from OSINT findings. Use only the facts provided. " +
	"State confidence where evidence is thin. Plain prose, no markdown."

// Brief generates a narrative brief for one audience from a built report.
func Brief(ctx context.Context, narrator Narrator, r *Report, audience string) (string, error) {
	framing, ok := audiencePrompts[audience]
	if !ok {
		return "", fmt.Errorf("%w: unknown audience %q (valid: %s)",
			profile.ErrInvalidInput, audience, strings.Join(Audiences(), ", "))
	}

	findings, err := json.MarshalIndent(map[string]any{
		"identifier":        r.Identifier,
		"executive_summary": r.ExecutiveSummary,
		"risk":              r.Risk,
		"platforms":         r.Platforms,
		"indicators":        r.Indicators,
		"timeline":          r.Timeline,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode findings: %w", err)
	}

	user := framing + "\n\nFindings:\n" + string(findings)
	text, err := narrator.Narrate(ctx, briefSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("generate %s brief: %w", audience, err)
	}
	return strings.TrimSpace(text), nil
}
