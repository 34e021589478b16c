package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextConfig_Validation(t *testing.T) {
	runEnvCases(t, []envCase{
		{
			name: "verify context defaults",
			env:  withRequired(map[string]string{}),
			check: func(t *testing.T, cfg *Config) {
				assert.Empty(t, cfg.Context.RuleTypes)
				assert.Equal(t, UnknownRulePolicyReject, cfg.Context.UnknownRulePolicy)
				assert.Equal(t, 1000, cfg.Context.PlacementCacheSize)
				assert.Equal(t, 30*time.Second, cfg.Context.PlacementCacheTTL)
			},
		},
		{
			name: "parse a comma separated rule type list",
			env: withRequired(map[string]string{
				"ADENTITY_CONTEXT_RULE_TYPES": "device,geo,turnoff",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"device", "geo", "turnoff"}, cfg.Context.RuleTypes)
			},
		},
		{
			name: "accept the passthrough policy",
			env: withRequired(map[string]string{
				"ADENTITY_CONTEXT_UNKNOWN_RULE_POLICY": "passthrough",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, UnknownRulePolicyPassthrough, cfg.Context.UnknownRulePolicy)
			},
		},
		{
			name: "rejects unknown policy",
			env: withRequired(map[string]string{
				"ADENTITY_CONTEXT_UNKNOWN_RULE_POLICY": "ignore",
			}),
			fails: true,
		},
		{
			name: "rejects duplicated rule types",
			env: withRequired(map[string]string{
				"ADENTITY_CONTEXT_RULE_TYPES": "geo,geo",
			}),
			fails: true,
		},
		{
			name: "rejects zero cache size",
			env: withRequired(map[string]string{
				"ADENTITY_CONTEXT_PLACEMENT_CACHE_SIZE": "0",
			}),
			fails: true,
		},
		{
			name: "rejects sub-second cache ttl",
			env: withRequired(map[string]string{
				"ADENTITY_CONTEXT_PLACEMENT_CACHE_TTL": "500ms",
			}),
			fails: true,
		},
	})
}
