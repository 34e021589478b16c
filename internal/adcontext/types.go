// Package adcontext defines context assignments for advertising placements
// and the registry of rule types that can configure them.
//
// A rule type is a plugin: it contributes a settings sub-form and normalizes
// the settings submitted through it. The registry is populated once at
// process start and is read-only afterwards.
package adcontext

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownRuleType is returned when a rule type id is not registered.
	ErrUnknownRuleType = errors.New("unknown rule type")

	// ErrInvalidSettings is wrapped by every settings rejection of a plugin.
	ErrInvalidSettings = errors.New("invalid rule settings")
)

// Definition describes a registered rule type.
type Definition struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Settings is the configuration of one rule type, as submitted or persisted.
type Settings map[string]any

// Assignment is one context rule attached to a field value.
//
// RuleSettings holds at most one populated entry, keyed by RuleTypeID, once
// the value went through the normalizer.
type Assignment struct {
	RuleTypeID   string              `json:"rule_type_id"`
	ApplyTo      []string            `json:"apply_to"`
	RuleSettings map[string]Settings `json:"rule_settings"`
}

// IsEmpty reports whether no rule type is selected.
func (a Assignment) IsEmpty() bool {
	return strings.TrimSpace(a.RuleTypeID) == ""
}

// AppliesTo reports whether the assignment targets placementID. An empty
// ApplyTo list targets every placement.
func (a Assignment) AppliesTo(placementID string) bool {
	return len(a.ApplyTo) == 0 || slices.Contains(a.ApplyTo, placementID)
}

// SettingsError is a plugin rejection tied to one settings key.
type SettingsError struct {
	Field   string
	Message string
}

func (e *SettingsError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes every SettingsError match ErrInvalidSettings.
func (e *SettingsError) Unwrap() error {
	return ErrInvalidSettings
}

func invalidf(field, format string, args ...any) error {
	return &SettingsError{Field: field, Message: fmt.Sprintf(format, args...)}
}
