package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"price-watcher/internal/types"
)

// MaterialStore persists the browser session material as a single JSON blob.
// Runs are serialized, so a plain read-then-overwrite is enough.
type MaterialStore struct {
	path string
}

// NewMaterialStore creates a store backed by path
func NewMaterialStore(path string) *MaterialStore {
	return &MaterialStore{path: path}
}

// Path returns the backing file
func (m *MaterialStore) Path() string {
	return m.path
}

// Load returns the stored material, or nil when nothing was saved yet.
func (m *MaterialStore) Load() (*types.SessionMaterial, error) {
	raw, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.PersistenceError{Resource: m.path, Op: "read", Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var material types.SessionMaterial
	if err := json.Unmarshal(raw, &material); err != nil {
		return nil, &types.PersistenceError{Resource: m.path, Op: "decode", Err: err}
	}
	return &material, nil
}

// Save overwrites the stored material.
func (m *MaterialStore) Save(material *types.SessionMaterial) error {
	if material == nil {
		return nil
	}
	data, err := json.MarshalIndent(material, "", "  ")
	if err != nil {
		return &types.PersistenceError{Resource: m.path, Op: "encode", Err: err}
	}
	if err := WriteFileAtomic(m.path, data); err != nil {
		return &types.PersistenceError{Resource: m.path, Op: "write", Err: err}
	}
	return nil
}
