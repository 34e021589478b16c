package config

import (
	"fmt"
	"time"
)

// Policies applied by the normalizer when a submission names a rule type
// that is not registered.
const (
	// UnknownRulePolicyReject fails the submission with a rule_type_id error.
	UnknownRulePolicyReject = "reject"

	// UnknownRulePolicyDrop removes the value and logs a warning.
	UnknownRulePolicyDrop = "drop"

	// UnknownRulePolicyPassthrough keeps the value unvalidated, but only the
	// settings stored under its own rule type id survive. This differs from
	// the legacy widget, which left every submitted settings entry in place
	// for unknown ids.
	UnknownRulePolicyPassthrough = "passthrough"
)

// ContextConfig configures the context rule registry and the field widget.
type ContextConfig struct {
	// RuleTypes restricts the built-in rule types registered at startup.
	// Empty means every built-in type is available.
	RuleTypes []string `envconfig:"RULE_TYPES"`

	// UnknownRulePolicy decides the fate of values whose rule type is not registered.
	UnknownRulePolicy string `envconfig:"UNKNOWN_RULE_POLICY" default:"reject" validate:"oneof=reject drop passthrough"`

	// PlacementCacheSize is the capacity of the in-process placement cache.
	PlacementCacheSize int `envconfig:"PLACEMENT_CACHE_SIZE" default:"1000" validate:"min=1"`

	// PlacementCacheTTL bounds staleness of placement options shown in forms.
	PlacementCacheTTL time.Duration `envconfig:"PLACEMENT_CACHE_TTL" default:"30s" validate:"min=1s"`
}

// Validate checks ContextConfig fields for correctness.
func (c *ContextConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.RuleTypes))
	for _, id := range c.RuleTypes {
		if err := checkToken("rule type id", id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("rule type %q listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
