// internal/header/state_test.go
package header

import (
	"fmt"
	"testing"

	fuzzheaders "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func effectNames(effects []Effect) []string {
	if len(effects) == 0 {
		return nil
	}
	out := make([]string, len(effects))
	for i, e := range effects {
		out[i] = fmt.Sprintf("%T", e)
	}
	return out
}

// run applies a signal sequence and returns the final state.
func run(t *testing.T, env Env, signals ...Signal) State {
	t.Helper()
	var st State
	for _, sig := range signals {
		st, _ = Transition(st, sig, env)
	}
	return st
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAlways, ParseMode("always"))
	assert.Equal(t, ModeScrollUp, ParseMode("scroll-up"))
	assert.Equal(t, ModeNone, ParseMode(""))
	assert.Equal(t, ModeNone, ParseMode("sometimes"))
}

func TestTransitionAlwaysBehaviorIntersection(t *testing.T) {
	envs := map[string]Env{
		"always desktop":    {Mode: ModeAlways, Mobile: false},
		"always mobile":     {Mode: ModeAlways, Mobile: true},
		"scroll-up mobile":  {Mode: ModeScrollUp, Mobile: true},
	}
	for name, env := range envs {
		t.Run(name, func(t *testing.T) {
			st, effects := Transition(State{}, Intersection{Intersecting: false}, env)
			assert.Equal(t, StickyActive, st.Sticky)
			assert.Equal(t,
				[]string{"header.PublishState", "header.UpdateThemeColor"},
				effectNames(effects))

			st, effects = Transition(st, Intersection{Intersecting: true}, env)
			assert.Equal(t, StickyInactive, st.Sticky)
			assert.Equal(t,
				[]string{"header.PublishState", "header.UpdateThemeColor"},
				effectNames(effects))
		})
	}
}

func TestTransitionAlwaysBehaviorScrollDirection(t *testing.T) {
	env := Env{Mode: ModeAlways, OriginTop: 0}

	steps := []struct {
		top  float64
		want ScrollDirection
	}{
		{0, DirectionNone},
		{100, DirectionDown},
		{150, DirectionDown},
		{90, DirectionUp},
		{0, DirectionNone},
	}

	var st State
	for _, step := range steps {
		var effects []Effect
		st, effects = Transition(st, Scroll{Top: step.top}, env)
		assert.Equal(t, step.want, st.Direction, "top=%v", step.top)
		assert.Equal(t, []string{"header.PublishState"}, effectNames(effects))
		assert.Equal(t, step.top, st.LastTop)
		assert.True(t, st.HaveLast)
	}
}

func TestTransitionDesktopIntersectionTracksOffscreen(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false}

	st, effects := Transition(State{}, Intersection{Intersecting: false}, env)
	assert.True(t, st.Offscreen)
	assert.Empty(t, effects, "offscreen tracking publishes nothing")

	// Back in view while inactive clears the flag.
	st, _ = Transition(st, Intersection{Intersecting: true}, env)
	assert.False(t, st.Offscreen)

	// Back in view while active must not clear it: a late observer callback
	// during a fast upward scroll would otherwise drop the hysteresis.
	st = State{Sticky: StickyActive}
	st, _ = Transition(st, Intersection{Intersecting: true}, env)
	assert.True(t, st.Offscreen)
}

func TestTransitionDesktopScrollHysteresis(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false, OriginTop: 0}

	var st State
	st, _ = Transition(st, Intersection{Intersecting: false}, env)
	require.True(t, st.Offscreen)

	// First samples while offscreen without an upward move park in idle.
	st, effects := Transition(st, Scroll{Top: 100}, env)
	assert.Equal(t, StickyIdle, st.Sticky)
	assert.Equal(t, DirectionNone, st.Direction)
	assert.Equal(t, []string{"header.PublishState"}, effectNames(effects))

	st, _ = Transition(st, Scroll{Top: 200}, env)
	assert.Equal(t, StickyIdle, st.Sticky)

	// Upward scroll from idle reveals with the two-frame settle pulse.
	st, effects = Transition(st, Scroll{Top: 150}, env)
	assert.Equal(t, StickyActive, st.Sticky)
	assert.Equal(t, DirectionUp, st.Direction)
	assert.True(t, st.Animating)
	assert.True(t, st.SettlePending)
	assert.Equal(t, []string{"header.StartSettle", "header.PublishState"}, effectNames(effects))

	// Continued upward scroll while already active does not re-pulse.
	st, effects = Transition(st, SettleDone{}, env)
	require.False(t, st.Animating)
	st, effects = Transition(st, Scroll{Top: 120}, env)
	assert.Equal(t, StickyActive, st.Sticky)
	assert.False(t, st.Animating)
	assert.Equal(t, []string{"header.PublishState"}, effectNames(effects))

	// Downward scroll while active starts the hide debounce.
	st, effects = Transition(st, Scroll{Top: 180}, env)
	assert.Equal(t, StickyActive, st.Sticky)
	assert.Equal(t, DirectionNone, st.Direction)
	assert.True(t, st.Animating)
	assert.True(t, st.IdlePending)
	assert.Equal(t, []string{"header.PublishState", "header.ScheduleIdle"}, effectNames(effects))

	// The debounce firing settles into idle.
	st, effects = Transition(st, IdleTimeout{}, env)
	assert.Equal(t, StickyIdle, st.Sticky)
	assert.False(t, st.Animating)
	assert.False(t, st.IdlePending)
	assert.Equal(t, []string{"header.PublishState"}, effectNames(effects))

	// Returning to the origin drops out of sticky entirely.
	st, _ = Transition(st, Scroll{Top: 50}, env)
	require.Equal(t, StickyActive, st.Sticky)
	st, effects = Transition(st, Scroll{Top: 0}, env)
	want := State{LastTop: 0, HaveLast: true}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Fatalf("state after origin reset mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, effectNames(effects), "header.PublishState")
}

func TestTransitionUpwardScrollCancelsPendingIdle(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false, OriginTop: 0}
	st := State{
		Sticky:      StickyActive,
		Offscreen:   true,
		LastTop:     200,
		HaveLast:    true,
		IdlePending: true,
		Animating:   true,
	}

	st, effects := Transition(st, Scroll{Top: 150}, env)
	assert.False(t, st.IdlePending)
	assert.Equal(t, StickyActive, st.Sticky)
	assert.Equal(t, []string{"header.CancelIdle", "header.PublishState"}, effectNames(effects))
}

func TestTransitionDownwardScrollCancelsSettle(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false, OriginTop: 0}
	st := State{
		Sticky:        StickyActive,
		Offscreen:     true,
		LastTop:       100,
		HaveLast:      true,
		Animating:     true,
		SettlePending: true,
	}

	st, effects := Transition(st, Scroll{Top: 160}, env)
	assert.False(t, st.SettlePending)
	assert.True(t, st.IdlePending)
	assert.Equal(t,
		[]string{"header.CancelSettle", "header.PublishState", "header.ScheduleIdle"},
		effectNames(effects))
}

func TestTransitionOriginResetCancelsEverything(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false, OriginTop: 10}
	st := State{
		Sticky:        StickyActive,
		Direction:     DirectionUp,
		Offscreen:     true,
		LastTop:       120,
		HaveLast:      true,
		Animating:     true,
		IdlePending:   true,
		SettlePending: true,
	}

	st, effects := Transition(st, Scroll{Top: 5}, env)
	assert.Equal(t, StickyInactive, st.Sticky)
	assert.False(t, st.Offscreen)
	assert.False(t, st.Animating)
	assert.False(t, st.IdlePending)
	assert.False(t, st.SettlePending)
	assert.Equal(t,
		[]string{"header.CancelIdle", "header.CancelSettle", "header.PublishState"},
		effectNames(effects))
}

func TestTransitionOnscreenScrollIgnoredButSampled(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false, OriginTop: 0}

	st, effects := Transition(State{}, Scroll{Top: 120}, env)
	assert.Empty(t, effects)
	assert.Equal(t, StickyInactive, st.Sticky)
	// The sample is recorded even on the ignored branch: the very next event
	// after the header leaves view needs history to call direction.
	assert.Equal(t, 120.0, st.LastTop)
	assert.True(t, st.HaveLast)
}

func TestTransitionStaleCallbacksAreInert(t *testing.T) {
	env := Env{Mode: ModeScrollUp, Mobile: false}

	st := State{Sticky: StickyActive, Animating: true}
	next, effects := Transition(st, IdleTimeout{}, env)
	assert.Equal(t, st, next)
	assert.Empty(t, effects)

	next, effects = Transition(st, SettleDone{}, env)
	assert.Equal(t, st, next)
	assert.Empty(t, effects)
}

func TestTransitionModeNoneIgnoresEverything(t *testing.T) {
	env := Env{Mode: ModeNone}
	for _, sig := range []Signal{Intersection{Intersecting: false}, IdleTimeout{}, SettleDone{}} {
		st, effects := Transition(State{}, sig, env)
		assert.Empty(t, effects, "%T", sig)
		assert.Equal(t, StickyInactive, st.Sticky)
	}
}

// FuzzTransition drives the machine with arbitrary signal sequences and checks
// the invariants that hold in every reachable state.
func FuzzTransition(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	f.Add([]byte{2, 2, 2, 1, 0, 3, 3, 4, 2})

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzzheaders.NewConsumer(data)

		envPick, err := consumer.GetInt()
		if err != nil {
			return
		}
		env := Env{
			Mode:   Mode(envPick % 3),
			Mobile: envPick%2 == 0,
		}
		origin, err := consumer.GetInt()
		if err != nil {
			return
		}
		env.OriginTop = float64(origin % 50)

		var st State
		for i := 0; i < 64; i++ {
			pick, err := consumer.GetInt()
			if err != nil {
				return
			}
			var sig Signal
			switch pick % 4 {
			case 0:
				sig = Intersection{Intersecting: pick%8 < 4}
			case 1:
				top, err := consumer.GetInt()
				if err != nil {
					return
				}
				sig = Scroll{Top: float64(top % 1000)}
			case 2:
				sig = IdleTimeout{}
			default:
				sig = SettleDone{}
			}

			st, _ = Transition(st, sig, env)

			if st.Animating && st.Sticky != StickyActive {
				t.Fatalf("animating outside the active state: %+v after %T", st, sig)
			}
			if st.SettlePending && !st.Animating {
				t.Fatalf("settle pending without the animating flag: %+v after %T", st, sig)
			}
			if st.IdlePending && st.Sticky != StickyActive {
				t.Fatalf("idle pending outside the active state: %+v after %T", st, sig)
			}
		}
	})
}
