package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jay160412/jay-website/internal/model"
	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
)

var testFamilies = []string{"snake", "runner", "flappy", "tetris", "memory"}

func TestSkinRepository_Defaults(t *testing.T) {
	repo := NewSkinRepository(kv.NewMemory(), lock.New(), testFamilies, "classic")

	data, err := repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	for _, f := range testFamilies {
		assert.Equal(t, []string{"classic"}, data.OwnedSkins[f])
		assert.Equal(t, "classic", data.ActiveSkins[f])
	}
}

func TestSkinRepository_Update(t *testing.T) {
	store := kv.NewMemory()
	repo := NewSkinRepository(store, lock.New(), testFamilies, "classic")
	ctx := context.Background()

	data, err := repo.Update(ctx, "alice", func(d *model.SkinData) (bool, error) {
		d.OwnedSkins["snake"] = append(d.OwnedSkins["snake"], "neon")
		d.ActiveSkins["snake"] = "neon"
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"classic", "neon"}, data.OwnedSkins["snake"])

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "neon", got.ActiveSkins["snake"])
	assert.Equal(t, "classic", got.ActiveSkins["tetris"])

	// Stored separately from the users table
	_, err = store.Get(ctx, SkinDataKey("alice"))
	require.NoError(t, err)
	_, err = store.Get(ctx, UsersKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestSkinRepository_FillsMissingFamilies(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "user_bob", `{"ownedSkins":{"snake":["classic","fire"]},"activeSkins":{"snake":"fire"}}`))

	repo := NewSkinRepository(store, lock.New(), testFamilies, "classic")
	data, err := repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"classic", "fire"}, data.OwnedSkins["snake"])
	assert.Equal(t, "fire", data.ActiveSkins["snake"])
	assert.Equal(t, []string{"classic"}, data.OwnedSkins["memory"])
}

func TestSkinRepository_Save(t *testing.T) {
	repo := NewSkinRepository(kv.NewMemory(), lock.New(), testFamilies, "classic")
	ctx := context.Background()

	in := &model.SkinData{
		OwnedSkins:  map[string][]string{"runner": {"classic", "ice"}},
		ActiveSkins: map[string]string{"runner": "ice"},
	}
	require.NoError(t, repo.Save(ctx, "erin", in))

	got, err := repo.Get(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, []string{"classic", "ice"}, got.OwnedSkins["runner"])
	assert.Equal(t, "ice", got.ActiveSkins["runner"])
}
