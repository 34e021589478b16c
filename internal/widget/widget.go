// Package widget builds the admin form for context assignment values and
// normalizes what comes back from it.
package widget

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/form"
	"github.com/rafaeljc/adentity/internal/observability"
	"github.com/rafaeljc/adentity/internal/validation"
)

// RuleTypes is the read side of the rule type registry.
type RuleTypes interface {
	Definitions() []adcontext.Definition
	HasDefinition(id string) bool
	CreateInstance(id string) (adcontext.Plugin, error)
}

// PlacementSource lists the placements an assignment may target, as id -> label options.
type PlacementSource interface {
	PlacementOptions(ctx context.Context) ([]form.Option, error)
}

var _ RuleTypes = (*adcontext.Registry)(nil)

// Submission is one submitted assignment value.
type Submission struct {
	RuleTypeID   string                        `json:"rule_type_id"`
	ApplyTo      []string                      `json:"apply_to"`
	RuleSettings map[string]adcontext.Settings `json:"rule_settings"`
}

// Drafts turns submissions back into assignments as entered, so a rejected
// submission can be rendered again with its errors.
func Drafts(submissions []Submission) []adcontext.Assignment {
	drafts := make([]adcontext.Assignment, len(submissions))
	for i, s := range submissions {
		drafts[i] = adcontext.Assignment{
			RuleTypeID:   s.RuleTypeID,
			ApplyTo:      s.ApplyTo,
			RuleSettings: s.RuleSettings,
		}
	}
	return drafts
}

// Widget renders and normalizes context assignment values.
type Widget struct {
	ruleTypes  RuleTypes
	placements PlacementSource
	policy     string
	logger     *slog.Logger
	newToken   func() string
}

// New creates a Widget. policy is one of the config.UnknownRulePolicy* values;
// an empty policy means reject.
func New(ruleTypes RuleTypes, placements PlacementSource, policy string, logger *slog.Logger) *Widget {
	validation.AssertNotNil(ruleTypes, "ruleTypes")
	validation.AssertNotNil(placements, "placements")
	validation.AssertNotNil(logger, "logger")

	if policy == "" {
		policy = config.UnknownRulePolicyReject
	}
	return &Widget{
		ruleTypes:  ruleTypes,
		placements: placements,
		policy:     policy,
		logger:     logger,
		newToken:   newToken,
	}
}

// newToken returns 8 hex characters used to correlate the rule type selector
// with the elements whose visibility depends on it.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Form builds one element per item plus an empty one for adding a value.
func (w *Widget) Form(ctx context.Context, items []adcontext.Assignment, state *form.State) (*form.Element, error) {
	start := time.Now()
	defer func() { observability.ContextFormBuildDuration.Observe(time.Since(start).Seconds()) }()

	root := form.Container("values")
	for delta, item := range append(slices.Clone(items), adcontext.Assignment{}) {
		el, err := w.FormElement(ctx, item, delta, state)
		if err != nil {
			return nil, err
		}
		root.Append(el)
	}
	return root, nil
}

// FormElement builds the form of a single value. It reads placements and the
// registry but changes nothing.
func (w *Widget) FormElement(ctx context.Context, item adcontext.Assignment, delta int, state *form.State) (*form.Element, error) {
	placements, err := w.placements.PlacementOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements: %w", err)
	}

	token := w.newToken()
	definitions := w.ruleTypes.Definitions()

	ruleOptions := make([]form.Option, 0, len(definitions)+2)
	ruleOptions = append(ruleOptions, form.Option{Value: form.EmptyValue, Label: "- None -"})
	for _, def := range definitions {
		ruleOptions = append(ruleOptions, form.Option{Value: def.ID, Label: def.Label})
	}
	if !item.IsEmpty() && !w.ruleTypes.HasDefinition(item.RuleTypeID) {
		// Keep stored values of removed rule types selectable.
		ruleOptions = append(ruleOptions, form.Option{Value: item.RuleTypeID, Label: item.RuleTypeID + " (unavailable)"})
	}

	selector := form.Select("rule_type_id", "Context", ruleOptions).WithDefault(item.RuleTypeID)
	selector.Identifier = token

	applyTo := form.MultiSelect("apply_to", "Apply to", placements).
		WithDefault(nonNil(slices.Clone(item.ApplyTo))).
		WithDescription("The placements this context applies to. None selected means all placements.").
		InvisibleWhen(token, form.EmptyValue)

	settings := form.Container("rule_settings").InvisibleWhen(token, form.EmptyValue)
	for _, def := range definitions {
		plugin, err := w.ruleTypes.CreateInstance(def.ID)
		if err != nil {
			return nil, fmt.Errorf("rule type %q: %w", def.ID, err)
		}
		var current adcontext.Settings
		if item.RuleSettings != nil {
			current = item.RuleSettings[def.ID]
		}
		panel := form.Container(def.ID, plugin.SettingsForm(current, item, state)...).VisibleWhen(token, def.ID)
		panel.Title = def.Label
		settings.Append(panel)
	}

	el := form.Container(strconv.Itoa(delta), selector, applyTo, settings)
	el.SetAttribute("class", "adentity-context")
	state.Apply(el, el.Name)
	return el, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
