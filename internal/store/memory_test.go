package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/store"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, store.NewMemoryStore())
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemoryStore()
	owner := store.FieldOwner{EntityType: "node", EntityID: "1", FieldName: "ctx"}

	input := []adcontext.Assignment{{
		RuleTypeID:   "device",
		ApplyTo:      []string{"p1"},
		RuleSettings: map[string]adcontext.Settings{"device": {"target": "mobile"}},
	}}
	_, err := s.SaveAssignments(ctx, owner, input)
	require.NoError(t, err)

	input[0].ApplyTo[0] = "mutated"
	input[0].RuleSettings["device"]["target"] = "desktop"

	loaded, err := s.LoadAssignments(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, loaded.Assignments[0].ApplyTo)
	assert.Equal(t, "mobile", loaded.Assignments[0].RuleSettings["device"]["target"])

	loaded.Assignments[0].ApplyTo[0] = "mutated"
	again, err := s.LoadAssignments(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, again.Assignments[0].ApplyTo)
}

func TestFieldOwner(t *testing.T) {
	t.Parallel()

	owner := store.FieldOwner{EntityType: "node", EntityID: "42", FieldName: "field_ad_context"}
	require.NoError(t, owner.Validate())
	assert.Equal(t, "node:42:field_ad_context", owner.Key())

	parsed, err := store.ParseFieldOwner(owner.Key())
	require.NoError(t, err)
	assert.Equal(t, owner, parsed)

	tests := []struct {
		name  string
		owner store.FieldOwner
	}{
		{name: "empty entity type", owner: store.FieldOwner{EntityID: "1", FieldName: "f"}},
		{name: "separator in id", owner: store.FieldOwner{EntityType: "node", EntityID: "1:2", FieldName: "f"}},
		{name: "space in field", owner: store.FieldOwner{EntityType: "node", EntityID: "1", FieldName: "my field"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.owner.Validate())
		})
	}

	_, err = store.ParseFieldOwner("node:42")
	assert.Error(t, err)
}
