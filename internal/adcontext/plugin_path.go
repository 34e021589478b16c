package adcontext

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/rafaeljc/adentity/internal/form"
)

// PathPlugin targets request paths with glob patterns such as "/news/**".
type PathPlugin struct{}

var _ Plugin = (*PathPlugin)(nil)

func (p *PathPlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	return []*form.Element{
		form.Textarea("patterns", "Paths").
			WithDefault(lines(current, "patterns")).
			WithDescription("One pattern per line. \"*\" matches within a path segment and \"**\" across segments; \"{a,b}\" matches either."),
	}
}

func (p *PathPlugin) MassageSettings(submitted Settings) (Settings, error) {
	raw := form.Values(submitted).Lines("patterns")
	if len(raw) == 0 {
		return nil, invalidf("patterns", "enter at least one path pattern")
	}

	patterns := make([]string, 0, len(raw))
	for _, pattern := range raw {
		if !strings.HasPrefix(pattern, "/") {
			return nil, invalidf("patterns", "pattern %q must start with /", pattern)
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return nil, invalidf("patterns", "pattern %q does not compile: %v", pattern, err)
		}
		patterns = append(patterns, pattern)
	}
	return Settings{"patterns": uniqueStrings(patterns)}, nil
}
