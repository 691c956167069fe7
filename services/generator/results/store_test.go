// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/keyforge/services/generator/fixtures"
	"github.com/AleutianAI/keyforge/services/generator/scoring"
	"github.com/AleutianAI/keyforge/services/generator/storage/badger"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestSave_AndGet(t *testing.T) {
	s := newStore(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	saved, err := s.Save(ctx, Record{
		Mode:       "generate",
		Language:   "english",
		Layout:     fixtures.Dvorak,
		Score:      1.25,
		Pins:       []int{0, 29},
		Components: scoring.Components{Trigrams: 2, Usage: 0.75, Total: 1.25},
	})
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(saved.CreatedAt))

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, fixtures.Dvorak, got.Layout)
	assert.Equal(t, []int{0, 29}, got.Pins)
	assert.Equal(t, 0.75, got.Components.Usage)
	assert.True(t, fixed.Equal(got.CreatedAt))
}

func TestSave_Rejects(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Record{Layout: fixtures.Qwerty})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = s.Save(ctx, Record{Mode: "generate", Layout: "qwerty"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestGetAndDelete_NotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

	rec, err := s.Save(ctx, Record{Mode: "anneal", Layout: fixtures.Colemak})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err = s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndTop(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	inputs := []Record{
		{Mode: "generate", Language: "english", Layout: fixtures.Qwerty, Score: -2},
		{Mode: "generate", Language: "english", Layout: fixtures.Colemak, Score: 0.5},
		{Mode: "iterate", Language: "german", Layout: fixtures.Dvorak, Score: 3},
	}
	var ids []string
	for _, r := range inputs {
		saved, err := s.Save(ctx, r)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})

	list, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	top, err := s.Top(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 3.0, top[0].Score)
	assert.Equal(t, 0.5, top[1].Score)

	top, err = s.Top(ctx, 0, "english")
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, fixtures.Colemak, top[0].Layout)
	assert.Equal(t, fixtures.Qwerty, top[1].Layout)
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
