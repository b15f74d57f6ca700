// internal/header/session.go
package header

import (
	"fmt"

	"github.com/google/uuid"
)

// observationSession is one armed intersection-observation configuration.
type observationSession struct {
	id        uuid.UUID
	threshold float64
	stop      Unsubscribe
}

// sessionSlot owns at most one observation session per header instance.
// Start always stops the incumbent before arming the next session, so no two
// sessions ever deliver callbacks concurrently, and events from a stopped
// session remain identifiable by their stale ID.
type sessionSlot struct {
	current *observationSession
}

// Start replaces the active session with one observing at the given
// threshold. deliver receives the owning session's ID with every signal.
func (s *sessionSlot) Start(src Sources, threshold float64, deliver func(uuid.UUID, Intersection)) error {
	s.Stop()

	id := uuid.New()
	unsub, err := src.ObserveIntersection(threshold, func(sig Intersection) {
		deliver(id, sig)
	})
	if err != nil {
		return fmt.Errorf("failed to arm intersection session (threshold %g): %w", threshold, err)
	}
	s.current = &observationSession{id: id, threshold: threshold, stop: unsub}
	return nil
}

// Stop synchronously disconnects the active session, if any.
func (s *sessionSlot) Stop() {
	if s.current == nil {
		return
	}
	s.current.stop()
	s.current = nil
}

// ID returns the active session's ID, or uuid.Nil when the slot is empty.
func (s *sessionSlot) ID() uuid.UUID {
	if s.current == nil {
		return uuid.Nil
	}
	return s.current.id
}

// Threshold returns the active session's threshold.
func (s *sessionSlot) Threshold() (float64, bool) {
	if s.current == nil {
		return 0, false
	}
	return s.current.threshold, true
}
