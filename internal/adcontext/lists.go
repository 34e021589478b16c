package adcontext

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rafaeljc/adentity/internal/form"
)

var machineNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// uniqueStrings removes duplicates keeping the first occurrence.
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// machineNames reads a required list of machine names from key, lowercased,
// deduplicated and sorted.
func machineNames(submitted Settings, key, what string) ([]string, error) {
	raw := form.Values(submitted).Strings(key)
	names := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(s)
		if !machineNameRe.MatchString(s) {
			return nil, invalidf(key, "%q is not a valid %s machine name", s, what)
		}
		names = append(names, s)
	}
	if len(names) == 0 {
		return nil, invalidf(key, "select at least one %s", what)
	}
	names = uniqueStrings(names)
	slices.Sort(names)
	return names, nil
}

// lines joins a stored list for display in a textarea, one entry per line.
func lines(current Settings, key string) string {
	return strings.Join(form.Values(current).Lines(key), "\n")
}
