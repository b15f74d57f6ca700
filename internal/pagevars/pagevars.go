// internal/pagevars/pagevars.go

// Package pagevars holds page-level measurements keyed by CSS custom property
// name. The store is process-wide shared state with a single writer (the
// height propagators) and any number of readers; a sink mirrors every write
// into the live page when one is attached.
package pagevars

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives every successful write, e.g. to apply the value to the
// document root of a live page. Apply is best-effort; failures are logged and
// do not affect the stored value.
type Sink interface {
	Apply(name, value string) error
}

// Store is a named string measurement table.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	sink   Sink
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		values: make(map[string]string),
		logger: logger.Named("pagevars"),
	}
}

// SetSink attaches the mirror target. Passing nil detaches it.
func (s *Store) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Set records the measurement and mirrors it through the sink.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	s.values[name] = value
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		if err := sink.Apply(name, value); err != nil {
			s.logger.Warn("Failed to apply page variable",
				zap.String("name", name), zap.String("value", value), zap.Error(err))
		}
	}
}

// Get returns the stored measurement, or the empty string when unset.
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Len reports the number of stored measurements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
