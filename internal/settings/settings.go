// Package settings persists the application preferences document as a
// JSON file next to the database. Keys are addressed in dot notation
// ("tasks.default_priority") and unknown keys from older files survive a
// load via deep merge.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrKeyNotFound = errors.New("setting not found")

// Defaults returns a fresh copy of the built-in settings document.
func Defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"version": "1.0.0",
			"theme":   "light",
		},
		"tasks": map[string]any{
			"default_priority": "medium",
			"default_due_days": float64(7),
			"show_completed":   true,
		},
		"notifications": map[string]any{
			"enabled":          true,
			"sound":            true,
			"reminder_minutes": float64(15),
		},
		"backup": map[string]any{
			"auto_backup":          true,
			"backup_location":      "",
			"backup_interval_days": float64(7),
		},
	}
}

type Store struct {
	mu   sync.RWMutex
	path string
	doc  map[string]any
}

// Open loads the settings file at path, merging it over the defaults.
// A missing file is not an error; the defaults apply until the first Set.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: Defaults()}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var loaded map[string]any
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	deepMerge(s.doc, loaded)
	return s, nil
}

// All returns a deep copy of the whole document.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.doc)
}

// Get resolves a dot-notation key.
func (s *Store) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cur any = s.doc
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, ErrKeyNotFound
		}
		if cur, ok = m[part]; !ok {
			return nil, ErrKeyNotFound
		}
	}
	return cur, nil
}

// GetString returns the value at key when it is a string, else fallback.
func (s *Store) GetString(key, fallback string) string {
	v, err := s.Get(key)
	if err != nil {
		return fallback
	}
	str, ok := v.(string)
	if !ok {
		return fallback
	}
	return str
}

// GetInt returns the value at key when it is numeric, else fallback.
// JSON numbers decode as float64.
func (s *Store) GetInt(key string, fallback int) int {
	v, err := s.Get(key)
	if err != nil {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}

// Set writes a dot-notation key, creating intermediate objects, and
// persists the document immediately.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(key, ".")
	cur := s.doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
	return s.save()
}

// Reset restores the defaults and persists them.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = Defaults()
	return s.save()
}

// save assumes the write lock is held.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				deepMerge(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = copyMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}
