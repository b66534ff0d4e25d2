// Package env ingests the process environment into the shell's variable
// store at startup: each KEY=VALUE is inserted, and setting PATH triggers a
// PATH-table rescan.
package env

import (
	"os"
	"strings"
	"sync"

	"github.com/tjper/smash/internal/path"
)

// Store is the shell's variable store. The core gives variables no effect
// beyond PATH; everything else is inert storage for a future
// word-expansion implementation.
type Store struct {
	mu    sync.RWMutex
	vars  map[string]string
	paths *path.Table
}

// New creates a Store bound to paths, so that assigning PATH rescans it.
func New(paths *path.Table) *Store {
	return &Store{vars: make(map[string]string), paths: paths}
}

// LoadEnviron ingests every KEY=VALUE pair from os.Environ, as main does at
// startup.
func (s *Store) LoadEnviron() {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		s.Set(key, value)
	}
}

// Set assigns key to value, rescanning the PATH table when key is "PATH".
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	s.vars[key] = value
	s.mu.Unlock()

	if key == "PATH" {
		s.paths.Rescan(value)
	}
}

// Get returns the value of key and whether it is set.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[key]
	return v, ok
}
