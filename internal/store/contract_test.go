package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/store"
)

// runStoreContract exercises behaviour every Store implementation must share.
// Ids are suffixed so the scenarios tolerate a database shared with other tests.
func runStoreContract(t *testing.T, s store.Store) {
	ctx := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	id := func(name string) string { return name + "_" + suffix }

	t.Run("CreatePlacement fills server-side fields", func(t *testing.T) {
		p := &store.Placement{ID: id("header"), Label: "Header"}

		require.NoError(t, s.CreatePlacement(ctx, p))

		assert.NotEmpty(t, p.UUID)
		assert.Equal(t, int64(1), p.Version)
		assert.False(t, p.CreatedAt.IsZero())
		assert.False(t, p.UpdatedAt.IsZero())
	})

	t.Run("CreatePlacement rejects duplicates", func(t *testing.T) {
		err := s.CreatePlacement(ctx, &store.Placement{ID: id("header"), Label: "Again"})
		assert.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("GetPlacement", func(t *testing.T) {
		require.NoError(t, s.CreatePlacement(ctx, &store.Placement{ID: id("sidebar"), Label: "Sidebar"}))

		got, err := s.GetPlacement(ctx, id("sidebar"))
		require.NoError(t, err)
		assert.Equal(t, "Sidebar", got.Label)

		_, err = s.GetPlacement(ctx, id("missing"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ListAllPlacements orders by label", func(t *testing.T) {
		all, err := s.ListAllPlacements(ctx)
		require.NoError(t, err)

		var labels []string
		for _, p := range all {
			if p.ID == id("header") || p.ID == id("sidebar") {
				labels = append(labels, p.Label)
			}
		}
		assert.Equal(t, []string{"Header", "Sidebar"}, labels)
	})

	t.Run("ListPlacements paginates", func(t *testing.T) {
		page, total, err := s.ListPlacements(ctx, 1, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(2))
		assert.Len(t, page, 1)

		beyond, total2, err := s.ListPlacements(ctx, 10, int(total))
		require.NoError(t, err)
		assert.Equal(t, total, total2)
		assert.Empty(t, beyond)
	})

	t.Run("UpdatePlacement bumps the version and honours the lock", func(t *testing.T) {
		label := "Top banner"
		updated, err := s.UpdatePlacement(ctx, &store.UpdatePlacementParams{ID: id("header"), Label: &label, Version: 1})
		require.NoError(t, err)
		assert.Equal(t, "Top banner", updated.Label)
		assert.Equal(t, int64(2), updated.Version)

		_, err = s.UpdatePlacement(ctx, &store.UpdatePlacementParams{ID: id("header"), Label: &label, Version: 1})
		assert.ErrorIs(t, err, store.ErrVersionConflict)

		unlocked, err := s.UpdatePlacement(ctx, &store.UpdatePlacementParams{ID: id("header")})
		require.NoError(t, err)
		assert.Equal(t, "Top banner", unlocked.Label, "nil label keeps the current one")
		assert.Equal(t, int64(3), unlocked.Version)

		_, err = s.UpdatePlacement(ctx, &store.UpdatePlacementParams{ID: id("missing"), Label: &label})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("DeletePlacement", func(t *testing.T) {
		require.NoError(t, s.CreatePlacement(ctx, &store.Placement{ID: id("footer"), Label: "Footer"}))
		require.NoError(t, s.DeletePlacement(ctx, id("footer")))

		_, err := s.GetPlacement(ctx, id("footer"))
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeletePlacement(ctx, id("footer")), store.ErrNotFound)
	})

	owner := store.FieldOwner{EntityType: "node", EntityID: suffix, FieldName: "field_ad_context"}

	t.Run("LoadAssignments of an unsaved field is empty", func(t *testing.T) {
		values, err := s.LoadAssignments(ctx, owner)
		require.NoError(t, err)
		assert.NotNil(t, values.Assignments)
		assert.Empty(t, values.Assignments)
		assert.Zero(t, values.Version)
	})

	t.Run("SaveAssignments round-trips the persisted shape", func(t *testing.T) {
		saved, err := s.SaveAssignments(ctx, owner, []adcontext.Assignment{
			{
				RuleTypeID:   "device",
				ApplyTo:      []string{id("header")},
				RuleSettings: map[string]adcontext.Settings{"device": {"target": "mobile"}},
			},
			{
				RuleTypeID:   "geo",
				RuleSettings: map[string]adcontext.Settings{"geo": {"countries": []string{"BR", "US"}}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.Version)

		loaded, err := s.LoadAssignments(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(1), loaded.Version)
		require.Len(t, loaded.Assignments, 2)

		assert.Equal(t, "device", loaded.Assignments[0].RuleTypeID)
		assert.Equal(t, []string{id("header")}, loaded.Assignments[0].ApplyTo)
		assert.Equal(t, adcontext.Settings{"target": "mobile"}, loaded.Assignments[0].RuleSettings["device"])

		assert.Equal(t, []string{}, loaded.Assignments[1].ApplyTo, "apply_to is never null")
		assert.Equal(t, []any{"BR", "US"}, loaded.Assignments[1].RuleSettings["geo"]["countries"])
	})

	t.Run("SaveAssignments replaces previous values", func(t *testing.T) {
		saved, err := s.SaveAssignments(ctx, owner, []adcontext.Assignment{
			{RuleTypeID: "turnoff", RuleSettings: map[string]adcontext.Settings{"turnoff": {}}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), saved.Version)

		loaded, err := s.LoadAssignments(ctx, owner)
		require.NoError(t, err)
		require.Len(t, loaded.Assignments, 1)
		assert.Equal(t, "turnoff", loaded.Assignments[0].RuleTypeID)

		cleared, err := s.SaveAssignments(ctx, owner, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), cleared.Version)

		loaded, err = s.LoadAssignments(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, loaded.Assignments)
		assert.Equal(t, int64(3), loaded.Version, "clearing keeps the version history")
	})

	t.Run("ListFieldOwners includes saved fields", func(t *testing.T) {
		owners, err := s.ListFieldOwners(ctx)
		require.NoError(t, err)
		assert.Contains(t, owners, owner)
	})
}
