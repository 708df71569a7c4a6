package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SnapshotSchemaVersion is written into every new snapshot document.
const SnapshotSchemaVersion = 1

// Snapshot is the versioned envelope for frozen rows stored as JSON.
type Snapshot[T any] struct {
	SchemaVersion int `json:"schema_version"`
	Items         []T `json:"items"`
}

// EncodeSnapshot wraps items in the current envelope.
func EncodeSnapshot[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(Snapshot[T]{SchemaVersion: SnapshotSchemaVersion, Items: items})
}

// DecodeSnapshot reads an envelope or a legacy bare array (version 0).
func DecodeSnapshot[T any](raw []byte) (Snapshot[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Snapshot[T]{SchemaVersion: SnapshotSchemaVersion, Items: []T{}}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Snapshot[T]{}, fmt.Errorf("snapshot: decode legacy array: %w", err)
		}
		return Snapshot[T]{SchemaVersion: 0, Items: items}, nil
	}
	var snap Snapshot[T]
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return Snapshot[T]{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if snap.SchemaVersion > SnapshotSchemaVersion {
		return Snapshot[T]{}, fmt.Errorf("snapshot: unsupported schema version %d", snap.SchemaVersion)
	}
	if snap.Items == nil {
		snap.Items = []T{}
	}
	return snap, nil
}
