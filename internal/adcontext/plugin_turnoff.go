package adcontext

import "github.com/rafaeljc/adentity/internal/form"

// TurnOffPlugin suppresses ads where it applies. It has no settings.
type TurnOffPlugin struct{}

var _ Plugin = (*TurnOffPlugin)(nil)

func (p *TurnOffPlugin) SettingsForm(Settings, Assignment, *form.State) []*form.Element {
	return nil
}

func (p *TurnOffPlugin) MassageSettings(Settings) (Settings, error) {
	return Settings{}, nil
}
