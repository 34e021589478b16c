package widget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/observability"
)

// MassageValues turns submitted values into their persisted shape.
//
// Values without a rule type are dropped. Each remaining value keeps only
// the settings of its selected rule type, normalized by that type's plugin.
// If any value fails, every failure is returned in a *ValidationError and no
// assignments are returned.
func (w *Widget) MassageValues(ctx context.Context, submissions []Submission) ([]adcontext.Assignment, error) {
	log := logger.FromContext(ctx)

	var allowed map[string]struct{}
	out := make([]adcontext.Assignment, 0, len(submissions))
	var errs []*FieldError
	var dropped, passthrough int

	for delta, sub := range submissions {
		ruleTypeID := strings.TrimSpace(sub.RuleTypeID)
		if ruleTypeID == "" {
			dropped++
			continue
		}

		applyTo := cleanApplyTo(sub.ApplyTo)
		if len(applyTo) > 0 && allowed == nil {
			var err error
			if allowed, err = w.placementSet(ctx); err != nil {
				return nil, err
			}
		}
		for _, id := range applyTo {
			if _, ok := allowed[id]; !ok {
				errs = append(errs, &FieldError{
					Delta: delta,
					Field: "apply_to",
					Err:   fmt.Errorf("%w: placement %q does not exist", ErrIllegalChoice, id),
				})
			}
		}

		submitted := sub.RuleSettings[ruleTypeID]
		if submitted == nil {
			submitted = adcontext.Settings{}
		}

		var settings adcontext.Settings
		if w.ruleTypes.HasDefinition(ruleTypeID) {
			plugin, err := w.ruleTypes.CreateInstance(ruleTypeID)
			if err != nil {
				return nil, fmt.Errorf("rule type %q: %w", ruleTypeID, err)
			}
			if settings, err = plugin.MassageSettings(submitted); err != nil {
				errs = append(errs, settingsFieldError(delta, ruleTypeID, err))
				continue
			}
		} else {
			switch w.policy {
			case config.UnknownRulePolicyDrop:
				log.Warn("dropping value with unknown rule type",
					slog.Int("delta", delta), slog.String("rule_type_id", ruleTypeID))
				dropped++
				continue
			case config.UnknownRulePolicyPassthrough:
				log.Warn("keeping value with unknown rule type unvalidated",
					slog.Int("delta", delta), slog.String("rule_type_id", ruleTypeID))
				settings = submitted
				passthrough++
			default:
				errs = append(errs, &FieldError{
					Delta: delta,
					Field: "rule_type_id",
					Err:   fmt.Errorf("%w: %q", adcontext.ErrUnknownRuleType, ruleTypeID),
				})
				continue
			}
		}

		out = append(out, adcontext.Assignment{
			RuleTypeID:   ruleTypeID,
			ApplyTo:      applyTo,
			RuleSettings: map[string]adcontext.Settings{ruleTypeID: settings},
		})
	}

	observability.ContextValuesTotal.WithLabelValues(observability.OutcomeDropped).Add(float64(dropped))

	if len(errs) > 0 {
		observability.ContextValuesTotal.WithLabelValues(observability.OutcomeRejected).Add(float64(len(errs)))
		return nil, &ValidationError{Errors: errs}
	}

	observability.ContextValuesTotal.WithLabelValues(observability.OutcomePassthrough).Add(float64(passthrough))
	observability.ContextValuesTotal.WithLabelValues(observability.OutcomeSaved).Add(float64(len(out)))
	return out, nil
}

func (w *Widget) placementSet(ctx context.Context) (map[string]struct{}, error) {
	options, err := w.placements.PlacementOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements: %w", err)
	}
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[o.Value] = struct{}{}
	}
	return set, nil
}

// cleanApplyTo trims ids and removes blanks and duplicates, keeping order.
// The result is never nil.
func cleanApplyTo(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
