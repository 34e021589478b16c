package adcontext

import "github.com/rafaeljc/adentity/internal/form"

// UserRolePlugin targets users by role.
type UserRolePlugin struct{}

var _ Plugin = (*UserRolePlugin)(nil)

func (p *UserRolePlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	return []*form.Element{
		form.Textarea("roles", "Roles").
			WithDefault(lines(current, "roles")).
			WithDescription("Role machine names, one per line. Anonymous visitors have the role \"anonymous\"."),
	}
}

func (p *UserRolePlugin) MassageSettings(submitted Settings) (Settings, error) {
	roles, err := machineNames(submitted, "roles", "role")
	if err != nil {
		return nil, err
	}
	return Settings{"roles": roles}, nil
}
