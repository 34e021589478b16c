package adcontext

import "github.com/rafaeljc/adentity/internal/form"

// NodeTypePlugin targets pages by content type.
type NodeTypePlugin struct{}

var _ Plugin = (*NodeTypePlugin)(nil)

func (p *NodeTypePlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	return []*form.Element{
		form.Textarea("types", "Content types").
			WithDefault(lines(current, "types")).
			WithDescription("Machine names, one per line."),
	}
}

func (p *NodeTypePlugin) MassageSettings(submitted Settings) (Settings, error) {
	types, err := machineNames(submitted, "types", "content type")
	if err != nil {
		return nil, err
	}
	return Settings{"types": types}, nil
}
