package profile

import "strings"

// Classify fills profile_type and about when correlation or a model left them
// empty. It is deterministic: same profile in, same labels out.
func Classify(p *Profile) {
	if p.ProfileType == "" {
		p.ProfileType = deriveType(p)
	}
	if p.About == "" {
		p.About = deriveAbout(p)
	}
}

func deriveType(p *Profile) string {
	platforms := p.Usernames
	switch {
	case hasPlatform(platforms, "github") && len(p.Repositories) > 0:
		return TypeDeveloper
	case hasPlatform(platforms, "linkedin"):
		return TypeProfessional
	case hasPlatform(platforms, "twitter"), hasPlatform(platforms, "reddit"):
		return TypeIndividual
	case len(platforms) > 0:
		return TypeOnlineProfile
	default:
		return TypeUnknown
	}
}

func deriveAbout(p *Profile) string {
	name := p.Name
	if name == "" {
		name = "This subject"
	}

	footprint := "limited visible platforms"
	if platforms := p.Platforms(); len(platforms) > 0 {
		capitalized := make([]string, len(platforms))
		for i, platform := range platforms {
			capitalized[i] = capitalize(platform)
		}
		footprint = strings.Join(capitalized, ", ")
	}

	repoPhrase := "with minimal code exposure"
	if len(p.Repositories) > 0 {
		repoPhrase = "with public GitHub repositories"
	}

	return name + " appears to be a " + p.ProfileType + " active on " + footprint + " " + repoPhrase + "."
}

func hasPlatform(usernames map[string]Username, platform string) bool {
	_, ok := usernames[platform]
	return ok
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
