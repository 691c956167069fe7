// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results keeps a history of generated layouts in BadgerDB.
//
// Records are JSON values under "result/<uuid>" keys. IDs are UUIDv7, so
// key order is creation order.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sugawarayuuta/sonnet"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/scoring"
	"github.com/AleutianAI/keyforge/services/generator/storage/badger"
)

// Sentinel errors for the results store.
var (
	// ErrNotFound indicates no record has the requested ID.
	ErrNotFound = errors.New("result not found")

	// ErrInvalidRecord indicates a record that cannot be stored.
	ErrInvalidRecord = errors.New("invalid result record")
)

const keyPrefix = "result/"

// Record is one stored layout.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Mode is the command that produced the layout, e.g. "generate".
	Mode     string `json:"mode"`
	Language string `json:"language"`

	// Layout holds the 30 key runes in row-major order.
	Layout string  `json:"layout"`
	Score  float64 `json:"score"`
	Pins   []int   `json:"pins,omitempty"`

	Components scoring.Components `json:"components"`
}

// Store reads and writes records.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *badger.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("results store requires a database")
	}
	return &Store{db: db, now: time.Now}, nil
}

func recordKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Save validates rec, assigns its ID and creation time, and stores it.
//
// Outputs:
//   - Record: The stored record with ID and CreatedAt set.
//   - error: ErrInvalidRecord or a storage failure.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.Mode == "" {
		return Record{}, fmt.Errorf("%w: mode is required", ErrInvalidRecord)
	}
	if n := utf8.RuneCountInString(rec.Layout); n != kb.PositionCount {
		return Record{}, fmt.Errorf("%w: layout has %d keys, want %d", ErrInvalidRecord, n, kb.PositionCount)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("generate result id: %w", err)
	}
	rec.ID = id.String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	value, err := sonnet.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode result: %w", err)
	}
	err = s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey(rec.ID), value)
	})
	if err != nil {
		return Record{}, fmt.Errorf("store result %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return sonnet.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(recordKey(id)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return err
		}
		return txn.Delete(recordKey(id))
	})
}

func (s *Store) all(ctx context.Context) ([]Record, error) {
	var out []Record
	err := s.db.ScanPrefix(ctx, []byte(keyPrefix), func(key, value []byte) error {
		var rec Record
		if err := sonnet.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	recs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Top returns the n best-scoring records, optionally restricted to one
// language. n <= 0 returns all matches.
func (s *Store) Top(ctx context.Context, n int, language string) ([]Record, error) {
	recs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if language != "" {
		kept := recs[:0]
		for _, r := range recs {
			if r.Language == language {
				kept = append(kept, r)
			}
		}
		recs = kept
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if n > 0 && len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}
