package adcontext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/adentity/internal/form"
)

type stubPlugin struct{}

func (stubPlugin) SettingsForm(Settings, Assignment, *form.State) []*form.Element { return nil }
func (stubPlugin) MassageSettings(s Settings) (Settings, error)                  { return s, nil }

func stubFactory() Plugin { return stubPlugin{} }

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(Definition{ID: "b", Label: "B"}, stubFactory))
	require.NoError(t, r.Register(Definition{ID: "a"}, stubFactory))

	t.Run("Should keep registration order", func(t *testing.T) {
		defs := r.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, "b", defs[0].ID)
		assert.Equal(t, "a", defs[1].ID)
		assert.Equal(t, "a", defs[1].Label, "label defaults to the id")
	})

	t.Run("Should reject duplicates, empty ids and nil factories", func(t *testing.T) {
		assert.Error(t, r.Register(Definition{ID: "a"}, stubFactory))
		assert.Error(t, r.Register(Definition{ID: "  "}, stubFactory))
		assert.Error(t, r.Register(Definition{ID: "c"}, nil))
		assert.Len(t, r.Definitions(), 2)
	})

	t.Run("Should return a copy of the definitions", func(t *testing.T) {
		defs := r.Definitions()
		defs[0].Label = "mutated"
		assert.Equal(t, "B", r.Definitions()[0].Label)
	})
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(Definition{ID: "device", Label: "Device Type"}, stubFactory))

	assert.True(t, r.HasDefinition("device"))
	assert.False(t, r.HasDefinition("geo"))

	assert.Equal(t, []Definition{{ID: "device", Label: "Device Type"}}, r.Definitions())

	p, err := r.CreateInstance("device")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = r.CreateInstance("geo")
	assert.True(t, errors.Is(err, ErrUnknownRuleType))
}

func TestNewDefaultRegistry(t *testing.T) {
	t.Parallel()

	t.Run("Should register every built-in when nothing is enabled explicitly", func(t *testing.T) {
		r, err := NewDefaultRegistry(nil)
		require.NoError(t, err)

		ids := make([]string, 0)
		for _, d := range r.Definitions() {
			ids = append(ids, d.ID)
		}
		assert.Equal(t, BuiltinIDs(), ids)
	})

	t.Run("Should follow the configured order", func(t *testing.T) {
		r, err := NewDefaultRegistry([]string{RuleTypeGeo, RuleTypeDevice})
		require.NoError(t, err)

		defs := r.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, RuleTypeGeo, defs[0].ID)
		assert.Equal(t, "Device Type", defs[1].Label)
		assert.False(t, r.HasDefinition(RuleTypePath))
	})

	t.Run("Should fail on unknown ids", func(t *testing.T) {
		_, err := NewDefaultRegistry([]string{"carrier"})
		assert.ErrorIs(t, err, ErrUnknownRuleType)
	})

	t.Run("Should fail on duplicates", func(t *testing.T) {
		_, err := NewDefaultRegistry([]string{RuleTypeGeo, RuleTypeGeo})
		assert.Error(t, err)
	})
}

func TestAssignment(t *testing.T) {
	t.Parallel()

	universal := Assignment{RuleTypeID: RuleTypeDevice, ApplyTo: []string{}}
	scoped := Assignment{RuleTypeID: RuleTypeDevice, ApplyTo: []string{"sidebar"}}

	assert.True(t, universal.AppliesTo("anything"))
	assert.True(t, scoped.AppliesTo("sidebar"))
	assert.False(t, scoped.AppliesTo("header"))

	assert.True(t, Assignment{}.IsEmpty())
	assert.True(t, Assignment{RuleTypeID: "  "}.IsEmpty())
	assert.False(t, Assignment{RuleTypeID: RuleTypeDevice}.IsEmpty())
}
