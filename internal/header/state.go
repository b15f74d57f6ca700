// internal/header/state.go
package header

import (
	"github.com/xkilldash9x/headerkit/api/schemas"
)

// Mode selects whether and how the header stays visible relative to
// scrolling. It is declarative configuration: set once on the element, read
// at attach and on breakpoint-crossing resizes.
type Mode int

const (
	// ModeNone disables sticky behavior entirely: no observers, no
	// listeners, default attributes. Unrecognized configuration also maps
	// here.
	ModeNone Mode = iota
	// ModeAlways engages the sticky state whenever any part of the header
	// has scrolled out of view.
	ModeAlways
	// ModeScrollUp hides the header while scrolling down and reveals it on
	// upward scrolls. On mobile viewports it degrades to ModeAlways.
	ModeScrollUp
)

// ParseMode maps the sticky attribute value to a Mode.
func ParseMode(value string) Mode {
	switch value {
	case schemas.StickyModeAlways:
		return ModeAlways
	case schemas.StickyModeScrollUp:
		return ModeScrollUp
	default:
		return ModeNone
	}
}

func (m Mode) String() string {
	switch m {
	case ModeAlways:
		return schemas.StickyModeAlways
	case ModeScrollUp:
		return schemas.StickyModeScrollUp
	default:
		return "none"
	}
}

// StickyState is the published activation state.
type StickyState int

const (
	StickyInactive StickyState = iota
	StickyActive
	StickyIdle
)

func (s StickyState) String() string {
	switch s {
	case StickyActive:
		return "active"
	case StickyIdle:
		return "idle"
	default:
		return "inactive"
	}
}

// ScrollDirection is the published direction hint.
type ScrollDirection int

const (
	DirectionNone ScrollDirection = iota
	DirectionUp
	DirectionDown
)

func (d ScrollDirection) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// State is the full sticky-machine state for one header instance. The zero
// value is the initial state: inactive, no direction, not animating.
type State struct {
	Sticky    StickyState
	Direction ScrollDirection
	// Animating is the transient settle flag, held while a reveal or hide
	// transition plays.
	Animating bool
	// Offscreen tracks whether the header has left its natural top-of-flow
	// position. Internal; never published.
	Offscreen bool

	// One-sample scroll history used only to derive direction.
	LastTop  float64
	HaveLast bool

	// Pending scheduled work, so stale timer and frame callbacks are inert.
	IdlePending   bool
	SettlePending bool
}

// Published projects the externally visible attributes out of the state.
func (s State) Published() Published {
	return Published{Sticky: s.Sticky, Direction: s.Direction, Animating: s.Animating}
}

// Published is the attribute triple consumed by styling and other components.
type Published struct {
	Sticky    StickyState
	Direction ScrollDirection
	Animating bool
}

// Env is the slow-moving context a transition runs in.
type Env struct {
	Mode Mode
	// Mobile is true when the viewport is narrower than the breakpoint.
	Mobile bool
	// OriginTop is the header's natural document-flow top offset; scroll
	// offsets at or above it mean the page is back at the top.
	OriginTop float64
}

// alwaysBehavior reports whether the env runs the threshold-1 branch: mode
// always everywhere, or scroll-up on a mobile viewport.
func (e Env) alwaysBehavior() bool {
	return e.Mode == ModeAlways || (e.Mode == ModeScrollUp && e.Mobile)
}

// Threshold returns the intersection threshold the active observation session
// uses under this env.
func (e Env) Threshold() float64 {
	if e.Mode == ModeScrollUp && !e.Mobile {
		return 0
	}
	return 1
}

// Signal is an input to the sticky machine.
type Signal interface{ signal() }

// Intersection fires when the header crosses the session's observation
// threshold.
type Intersection struct {
	Intersecting bool
}

// Scroll carries the document scroll offset for one scroll event.
type Scroll struct {
	Top float64
}

// IdleTimeout fires when the hide debounce elapses with no further downward
// scroll.
type IdleTimeout struct{}

// SettleDone fires after the two-frame settle pulse has committed.
type SettleDone struct{}

func (Intersection) signal() {}
func (Scroll) signal()       {}
func (IdleTimeout) signal()  {}
func (SettleDone) signal()   {}

// Effect is a side effect requested by a transition. The controller owns the
// resources the effects touch (surface, debounce timer, settle pulse).
type Effect interface{ effect() }

// PublishState writes the attribute triple to the surface.
type PublishState struct{}

// UpdateThemeColor refreshes the browser chrome color from the header's top
// row.
type UpdateThemeColor struct{}

// ScheduleIdle starts or restarts the hide debounce. Last write wins: only
// the final pending transition fires.
type ScheduleIdle struct{}

// CancelIdle discards any pending hide debounce.
type CancelIdle struct{}

// StartSettle begins the two-frame animating pulse.
type StartSettle struct{}

// CancelSettle discards a pending settle pulse.
type CancelSettle struct{}

func (PublishState) effect()     {}
func (UpdateThemeColor) effect() {}
func (ScheduleIdle) effect()     {}
func (CancelIdle) effect()       {}
func (StartSettle) effect()      {}
func (CancelSettle) effect()     {}

// Transition is the single state-transition function of the sticky machine.
// It is pure: the controller applies the returned effects.
func Transition(st State, sig Signal, env Env) (State, []Effect) {
	var effects []Effect

	switch sig := sig.(type) {
	case Intersection:
		switch {
		case env.alwaysBehavior():
			if sig.Intersecting {
				st.Sticky = StickyInactive
			} else {
				st.Sticky = StickyActive
			}
			effects = append(effects, PublishState{}, UpdateThemeColor{})
		case env.Mode == ModeScrollUp:
			// Offscreen stays set while active even if the observer reports
			// the header back in view; late callbacks during a fast scroll
			// must not drop the hysteresis.
			st.Offscreen = !sig.Intersecting || st.Sticky == StickyActive
		}

	case Scroll:
		switch {
		case env.alwaysBehavior():
			switch {
			case sig.Top <= env.OriginTop:
				st.Direction = DirectionNone
			case st.HaveLast && sig.Top < st.LastTop:
				st.Direction = DirectionUp
			default:
				st.Direction = DirectionDown
			}
			effects = append(effects, PublishState{})
		case env.Mode == ModeScrollUp && st.Offscreen:
			st, effects = scrollWhileOffscreen(st, sig, env)
		}
		// The latest offset becomes the sample for the next event in every
		// branch, including the ignored one.
		st.LastTop = sig.Top
		st.HaveLast = true

	case IdleTimeout:
		if st.IdlePending {
			st.IdlePending = false
			st.Sticky = StickyIdle
			st.Animating = false
			effects = append(effects, PublishState{})
		}

	case SettleDone:
		if st.SettlePending {
			st.SettlePending = false
			st.Animating = false
			effects = append(effects, PublishState{})
		}
	}

	return st, effects
}

// scrollWhileOffscreen handles desktop scroll-up hysteresis once the header
// has left the viewport.
func scrollWhileOffscreen(st State, sig Scroll, env Env) (State, []Effect) {
	var effects []Effect

	scrolledUp := st.HaveLast && sig.Top < st.LastTop
	if scrolledUp {
		if st.IdlePending {
			st.IdlePending = false
			effects = append(effects, CancelIdle{})
		}
		if sig.Top <= env.OriginTop {
			// Back at the origin: drop out of sticky entirely.
			st.Sticky = StickyInactive
			st.Direction = DirectionNone
			st.Animating = false
			st.Offscreen = false
			if st.SettlePending {
				st.SettlePending = false
				effects = append(effects, CancelSettle{})
			}
			effects = append(effects, PublishState{})
			return st, effects
		}
		wasIdle := st.Sticky == StickyIdle
		st.Sticky = StickyActive
		st.Direction = DirectionUp
		if wasIdle {
			// Reveal transition: hold the animating flag across two render
			// commits. An already-active header does not re-pulse.
			st.Animating = true
			st.SettlePending = true
			effects = append(effects, StartSettle{})
		}
		effects = append(effects, PublishState{})
		return st, effects
	}

	// Downward (or unchanged) scroll.
	if st.Sticky == StickyActive {
		st.Direction = DirectionNone
		st.Animating = true
		if st.SettlePending {
			st.SettlePending = false
			effects = append(effects, CancelSettle{})
		}
		st.IdlePending = true
		effects = append(effects, PublishState{}, ScheduleIdle{})
		return st, effects
	}
	st.Direction = DirectionNone
	st.Sticky = StickyIdle
	effects = append(effects, PublishState{})
	return st, effects
}
