// Package state tracks the last observed price per item URL and persists the
// whole snapshot as JSON.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"price-watcher/internal/types"
	"price-watcher/utils"
)

// Store maps an item URL to its last observed price.
type Store map[string]types.StateRecord

// Clone returns an independent copy of the store.
func (s Store) Clone() Store {
	out := make(Store, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Record returns a copy of store with the observation for url applied, and
// the amount that was recorded before, or nil for a first observation. The
// input store is never modified.
func Record(store Store, url, name string, obs types.PriceObservation, seenAt time.Time) (Store, *int64) {
	var prev *int64
	if rec, ok := store[url]; ok {
		amount := rec.LastAmountMinorUnits
		prev = &amount
	}

	updated := store.Clone()
	updated[url] = types.StateRecord{
		Name:                 name,
		LastAmountMinorUnits: obs.AmountMinorUnits,
		LastSeenAt:           seenAt.UTC(),
		Method:               obs.Method,
		RawText:              obs.RawText,
	}
	return updated, prev
}

// Changed reports whether moving from prev to next is a notable change.
// A nil prev is never a change. threshold below 1 is treated as 1.
func Changed(prev *int64, next int64, threshold int64) bool {
	if prev == nil {
		return false
	}
	if threshold < 1 {
		threshold = 1
	}
	diff := next - *prev
	if diff < 0 {
		diff = -diff
	}
	return diff >= threshold
}

// Load reads a snapshot. A missing or empty file yields an empty store.
func Load(path string) (Store, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Store{}, nil
	}
	if err != nil {
		return nil, &types.PersistenceError{Resource: path, Op: "read", Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Store{}, nil
	}

	store := Store{}
	if err := json.Unmarshal(raw, &store); err != nil {
		return nil, &types.PersistenceError{Resource: path, Op: "decode", Err: err}
	}
	return store, nil
}

// Save rewrites the snapshot in full. The file is replaced atomically so a
// reader never sees a partial snapshot.
func Save(path string, store Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return &types.PersistenceError{Resource: path, Op: "encode", Err: err}
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return &types.PersistenceError{Resource: path, Op: "write", Err: err}
	}
	return nil
}
