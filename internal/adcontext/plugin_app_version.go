package adcontext

import (
	"github.com/Masterminds/semver/v3"

	"github.com/rafaeljc/adentity/internal/form"
)

// AppVersionPlugin targets native app builds with a semver constraint, e.g. ">= 2.3, < 3".
type AppVersionPlugin struct{}

var _ Plugin = (*AppVersionPlugin)(nil)

func (p *AppVersionPlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	return []*form.Element{
		form.Textfield("constraint", "Version constraint").
			WithDefault(form.Values(current).String("constraint")).
			WithDescription("Semantic version constraint such as \">= 2.3, < 3\"."),
	}
}

func (p *AppVersionPlugin) MassageSettings(submitted Settings) (Settings, error) {
	constraint := form.Values(submitted).String("constraint")
	if constraint == "" {
		return nil, invalidf("constraint", "enter a version constraint")
	}
	if _, err := semver.NewConstraint(constraint); err != nil {
		return nil, invalidf("constraint", "%q is not a valid constraint: %v", constraint, err)
	}
	return Settings{"constraint": constraint}, nil
}
