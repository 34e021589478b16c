package adcontext

import (
	"slices"
	"strings"

	"github.com/rafaeljc/adentity/internal/form"
)

// GeoPlugin targets visitors by ISO 3166-1 alpha-2 country code.
type GeoPlugin struct{}

var _ Plugin = (*GeoPlugin)(nil)

func (p *GeoPlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	return []*form.Element{
		form.Textarea("countries", "Countries").
			WithDefault(lines(current, "countries")).
			WithDescription("Two-letter country codes, one per line or comma separated."),
	}
}

func (p *GeoPlugin) MassageSettings(submitted Settings) (Settings, error) {
	raw := form.Values(submitted).Strings("countries")
	if len(raw) == 0 {
		return nil, invalidf("countries", "enter at least one country code")
	}

	countries := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToUpper(c)
		if !isCountryCode(c) {
			return nil, invalidf("countries", "%q is not a two-letter country code", c)
		}
		countries = append(countries, c)
	}
	countries = uniqueStrings(countries)
	slices.Sort(countries)
	return Settings{"countries": countries}, nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
