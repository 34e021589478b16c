package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElement_Find(t *testing.T) {
	t.Parallel()

	root := Container("value",
		Select("rule_type_id", "Rule", nil),
		Container("rule_settings",
			Container("device", Select("target", "Target", nil)),
		),
	)

	assert.Same(t, root, root.Find())
	assert.Equal(t, "rule_type_id", root.Find("rule_type_id").Name)
	assert.Equal(t, TypeSelect, root.Find("rule_settings", "device", "target").Type)
	assert.Nil(t, root.Find("rule_settings", "geo"))
	assert.Nil(t, root.Find("missing", "target"))
}

func TestElement_Builders(t *testing.T) {
	t.Parallel()

	el := Select("target", "Target", []Option{{Value: "mobile", Label: "Mobile"}}).
		WithDefault("mobile").
		WithDescription("Device class").
		SetAttribute("class", "device-select")

	assert.Equal(t, "mobile", el.Default)
	assert.Equal(t, "Device class", el.Description)
	assert.Equal(t, "device-select", el.Attributes["class"])
	assert.False(t, el.Multiple)
	assert.True(t, MultiSelect("m", "M", nil).Multiple)
}

func TestElement_Conditions(t *testing.T) {
	t.Parallel()

	el := Container("device").VisibleWhen("tok", "device").InvisibleWhen("other", EmptyValue)
	assert.Equal(t, &States{
		Visible:   []Condition{{Field: "tok", Value: "device"}},
		Invisible: []Condition{{Field: "other", Value: ""}},
	}, el.States)
	assert.Nil(t, Textfield("a", "A").States)
}

func TestElement_JSON(t *testing.T) {
	t.Parallel()

	el := Container("rule_settings").InvisibleWhen("abcd1234", "")
	raw, err := json.Marshal(el)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "container",
		"name": "rule_settings",
		"states": {"invisible": [{"field": "abcd1234", "value": ""}]}
	}`, string(raw))
}
