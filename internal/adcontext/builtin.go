package adcontext

import "fmt"

// Built-in rule type ids.
const (
	RuleTypeNodeType   = "node_type"
	RuleTypeUserRole   = "user_role"
	RuleTypePath       = "path"
	RuleTypeGeo        = "geo"
	RuleTypeDevice     = "device"
	RuleTypeAppVersion = "app_version"
	RuleTypeTargeting  = "targeting"
	RuleTypeExpression = "expression"
	RuleTypeTurnOff    = "turnoff"
)

type builtin struct {
	def     Definition
	factory Factory
}

// builtins lists the shipped rule types in the order they are offered.
var builtins = []builtin{
	{Definition{ID: RuleTypeNodeType, Label: "Content type", Description: "Show on pages of the selected content types."}, func() Plugin { return &NodeTypePlugin{} }},
	{Definition{ID: RuleTypeUserRole, Label: "User role", Description: "Show to users having one of the roles."}, func() Plugin { return &UserRolePlugin{} }},
	{Definition{ID: RuleTypePath, Label: "Request path", Description: "Show on paths matching a glob pattern."}, func() Plugin { return &PathPlugin{} }},
	{Definition{ID: RuleTypeGeo, Label: "Geographic", Description: "Show to visitors from the listed countries."}, func() Plugin { return &GeoPlugin{} }},
	{Definition{ID: RuleTypeDevice, Label: "Device Type", Description: "Show on one device class."}, func() Plugin { return &DevicePlugin{} }},
	{Definition{ID: RuleTypeAppVersion, Label: "App version", Description: "Show in app versions matching a semver constraint."}, func() Plugin { return &AppVersionPlugin{} }},
	{Definition{ID: RuleTypeTargeting, Label: "Targeting", Description: "Key/value targeting passed to the ad server."}, func() Plugin { return &TargetingPlugin{} }},
	{Definition{ID: RuleTypeExpression, Label: "Expression", Description: "Boolean CEL expression over the request context."}, func() Plugin { return NewExpressionPlugin() }},
	{Definition{ID: RuleTypeTurnOff, Label: "Turn off ads", Description: "Suppress the placement entirely."}, func() Plugin { return &TurnOffPlugin{} }},
}

// BuiltinIDs returns the ids of the shipped rule types.
func BuiltinIDs() []string {
	ids := make([]string, 0, len(builtins))
	for _, b := range builtins {
		ids = append(ids, b.def.ID)
	}
	return ids
}

// NewDefaultRegistry registers the built-in rule types named in enabled, in
// the order given. An empty list enables all of them.
func NewDefaultRegistry(enabled []string) (*Registry, error) {
	if len(enabled) == 0 {
		enabled = BuiltinIDs()
	}

	r := NewRegistry()
	for _, id := range enabled {
		b, ok := findBuiltin(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a built-in rule type", ErrUnknownRuleType, id)
		}
		if err := r.Register(b.def, b.factory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func findBuiltin(id string) (builtin, bool) {
	for _, b := range builtins {
		if b.def.ID == id {
			return b, true
		}
	}
	return builtin{}, false
}
