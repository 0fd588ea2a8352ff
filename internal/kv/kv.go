// Package kv is the small typed key-value persistence port used for every
// named slot the journal keeps outside the record store: the key state, the
// biometric credential and vault, the provider token envelope and the
// transient OAuth state.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the slot is empty.
var ErrNotFound = errors.New("not found")

// Store is implemented by BoltStore (durable) and MemoryStore (volatile).
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// GetJSON decodes the slot into v. It returns ErrNotFound for an empty slot.
func GetJSON(s Store, key string, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v into the slot.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, data)
}

// Has reports whether the slot holds a value.
func Has(s Store, key string) (bool, error) {
	_, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
