// Package store persists the drawn feature set as a single snapshot
// document under one well-known key. Every geometry mutation saves the
// whole set; the snapshot is always a complete replacement, never a diff.
package store

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bhupatram/tippan/internal/feature"
)

// StorageKey is the single key the geometry snapshot lives under. There
// is exactly one snapshot per installation; user scoping is an external
// concern.
const StorageKey = "tippan.geometry"

// ErrNoSnapshot is returned by Load when no snapshot has ever been saved.
var ErrNoSnapshot = errors.New("no stored snapshot")

// KV is the durable storage contract: get/set of a string value under a
// key. Implementations include an in-memory map, a file per key and a
// DuckDB table.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Snapshot reads and writes the geometry snapshot through a KV backend.
type Snapshot struct {
	kv  KV
	log zerolog.Logger
}

// NewSnapshot creates a snapshot store.
func NewSnapshot(kv KV, log zerolog.Logger) *Snapshot {
	return &Snapshot{kv: kv, log: log}
}

// Save overwrites the stored snapshot with the given feature set. It is
// called synchronously after every create/update/delete, never batched,
// so an abrupt navigation cannot lose a finalized feature.
func (s *Snapshot) Save(features []*feature.Feature) error {
	data, err := feature.Marshal(features)
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Load restores the stored feature set. Every restored polygon is
// re-marked locked; lines stay editable. A corrupt snapshot is logged
// and treated as empty rather than failing startup.
func (s *Snapshot) Load() ([]*feature.Feature, error) {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot read failed, starting empty")
		return nil, nil
	}
	if !ok || raw == "" {
		return nil, ErrNoSnapshot
	}

	features, err := feature.Unmarshal([]byte(raw))
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot corrupt, starting empty")
		return nil, nil
	}

	for _, f := range features {
		if f.Type == feature.Polygon {
			f.Locked = true
		}
	}
	return features, nil
}
