package adcontext

import "github.com/rafaeljc/adentity/internal/form"

// Plugin is the capability every rule type provides.
type Plugin interface {
	// SettingsForm returns the elements of the rule type's settings panel,
	// pre-filled from current. It must not mutate its arguments.
	SettingsForm(current Settings, item Assignment, state *form.State) []*form.Element

	// MassageSettings validates and normalizes submitted settings. Rejections
	// wrap ErrInvalidSettings. Applying it to its own output is a no-op.
	MassageSettings(submitted Settings) (Settings, error)
}

// Factory creates a plugin instance.
type Factory func() Plugin
