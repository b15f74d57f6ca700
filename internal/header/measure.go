// internal/header/measure.go
package header

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/headerkit/api/schemas"
	"github.com/xkilldash9x/headerkit/internal/pagevars"
)

// FormatPx renders a measurement the way the page-level variables expect it.
func FormatPx(v float64) string {
	return fmt.Sprintf("%dpx", int(math.Round(v)))
}

// HeightPropagator republishes the header's rendered height as a shared
// page-level measurement. Single writer of its variable; detaching resets
// the measurement to zero.
type HeightPropagator struct {
	store  *pagevars.Store
	name   string
	logger *zap.Logger
	unsub  Unsubscribe
}

func NewHeightPropagator(store *pagevars.Store, logger *zap.Logger) *HeightPropagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeightPropagator{
		store:  store,
		name:   schemas.VarHeaderHeight,
		logger: logger.Named("height"),
	}
}

// Start arms the resize observation on the header element.
func (p *HeightPropagator) Start(src Sources, headerTarget string) error {
	unsub, err := src.ObserveResize(headerTarget, func(e ResizeEntry) {
		p.store.Set(p.name, FormatPx(e.Height))
	})
	if err != nil {
		return fmt.Errorf("failed to arm header resize observation: %w", err)
	}
	p.unsub = unsub
	return nil
}

// Close releases the observation and resets the published measurement.
func (p *HeightPropagator) Close() {
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
	p.store.Set(p.name, "0px")
}

// GroupCalculator receives the header and group identifiers plus the current
// sibling heights and is responsible for writing the aggregate measurement.
type GroupCalculator func(header, group string, heights map[string]float64)

// SumCalculator is the default group-height calculator: the aggregate is the
// sum of all tracked sibling heights, written into the store.
func SumCalculator(store *pagevars.Store) GroupCalculator {
	return func(header, group string, heights map[string]float64) {
		total := 0.0
		// Deterministic order keeps float accumulation stable.
		keys := make([]string, 0, len(heights))
		for k := range heights {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			total += heights[k]
		}
		store.Set(schemas.VarHeaderGroupHeight, FormatPx(total))
	}
}

// GroupPropagator recomputes a sibling-group aggregate height whenever any
// tracked sibling resizes or the group's membership changes. On membership
// changes it re-subscribes to the current child set; the header itself is
// excluded from tracking.
type GroupPropagator struct {
	src    Sources
	header string
	group  string
	calc   GroupCalculator
	logger *zap.Logger

	mu           sync.Mutex
	childUnsub   Unsubscribe
	memberUnsubs map[string]Unsubscribe
	heights      map[string]float64
	closed       bool
}

func NewGroupPropagator(src Sources, header, group string, calc GroupCalculator, logger *zap.Logger) *GroupPropagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupPropagator{
		src:          src,
		header:       header,
		group:        group,
		calc:         calc,
		logger:       logger.Named("group"),
		memberUnsubs: make(map[string]Unsubscribe),
		heights:      make(map[string]float64),
	}
}

// Start arms the membership observation on the sibling group.
func (g *GroupPropagator) Start() error {
	unsub, err := g.src.ObserveChildren(g.group, g.onMembers)
	if err != nil {
		return fmt.Errorf("failed to arm group membership observation: %w", err)
	}
	g.mu.Lock()
	g.childUnsub = unsub
	g.mu.Unlock()
	return nil
}

// onMembers re-subscribes to the current child set and recomputes.
func (g *GroupPropagator) onMembers(members []string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}

	for _, unsub := range g.memberUnsubs {
		unsub()
	}
	g.memberUnsubs = make(map[string]Unsubscribe)

	current := make(map[string]bool, len(members))
	for _, m := range members {
		if m == g.header {
			continue
		}
		current[m] = true
		unsub, err := g.src.ObserveResize(m, g.onMemberResize)
		if err != nil {
			g.logger.Warn("Failed to observe group member", zap.String("member", m), zap.Error(err))
			continue
		}
		g.memberUnsubs[m] = unsub
	}

	// Departed members drop out of the aggregate.
	for id := range g.heights {
		if !current[id] {
			delete(g.heights, id)
		}
	}

	snapshot := g.snapshotLocked()
	g.mu.Unlock()

	g.calc(g.header, g.group, snapshot)
}

func (g *GroupPropagator) onMemberResize(e ResizeEntry) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.heights[e.Target] = e.Height
	snapshot := g.snapshotLocked()
	g.mu.Unlock()

	g.calc(g.header, g.group, snapshot)
}

func (g *GroupPropagator) snapshotLocked() map[string]float64 {
	out := make(map[string]float64, len(g.heights))
	for k, v := range g.heights {
		out[k] = v
	}
	return out
}

// Close releases the membership observation and every member subscription.
func (g *GroupPropagator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true

	if g.childUnsub != nil {
		g.childUnsub()
		g.childUnsub = nil
	}
	for _, unsub := range g.memberUnsubs {
		unsub()
	}
	g.memberUnsubs = make(map[string]Unsubscribe)
	g.heights = make(map[string]float64)
}
