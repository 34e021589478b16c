package adcontext

import (
	"slices"
	"strings"

	"github.com/rafaeljc/adentity/internal/form"
)

// TargetingPlugin holds free key/value targeting handed to the ad server.
//
// Settings accept either a map of key to values or a textarea with one
// "key: value1, value2" line per key.
type TargetingPlugin struct{}

var _ Plugin = (*TargetingPlugin)(nil)

func (p *TargetingPlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	var b strings.Builder
	if pairs, err := targetingPairs(current); err == nil {
		for _, key := range sortedKeys(pairs) {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(strings.Join(pairs[key], ", "))
			b.WriteString("\n")
		}
	}
	return []*form.Element{
		form.Textarea("targeting", "Targeting").
			WithDefault(strings.TrimSuffix(b.String(), "\n")).
			WithDescription("One \"key: value1, value2\" pair per line."),
	}
}

func (p *TargetingPlugin) MassageSettings(submitted Settings) (Settings, error) {
	pairs, err := targetingPairs(submitted)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, invalidf("targeting", "enter at least one targeting pair")
	}
	return Settings{"targeting": pairs}, nil
}

func targetingPairs(settings Settings) (map[string][]string, error) {
	raw := map[string]any{}
	switch v := settings["targeting"].(type) {
	case nil:
	case string:
		for _, line := range strings.Split(v, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			key, values, ok := strings.Cut(line, ":")
			if !ok {
				return nil, invalidf("targeting", "line %q must look like \"key: value\"", line)
			}
			key = strings.ToLower(strings.TrimSpace(key))
			if prev, dup := raw[key].(string); dup {
				values = prev + "," + values
			}
			raw[key] = values
		}
	case map[string]any:
		raw = v
	case map[string][]string:
		for key, values := range v {
			raw[key] = values
		}
	default:
		return nil, invalidf("targeting", "unsupported value of type %T", v)
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	pairs := make(map[string][]string, len(raw))
	for _, key := range keys {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if !machineNameRe.MatchString(normalized) {
			return nil, invalidf("targeting", "%q is not a valid targeting key", key)
		}
		values := uniqueStrings(form.Values(raw).Strings(key))
		if len(values) == 0 {
			return nil, invalidf("targeting", "key %q has no values", normalized)
		}
		pairs[normalized] = uniqueStrings(append(pairs[normalized], values...))
	}
	return pairs, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
