// internal/header/menu.go
package header

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/headerkit/api/schemas"
)

// MenuCoordinator decides when the navigation drawer substitutes for an
// overflowing menu. It is driven by the menu's overflow-capacity event and by
// the header's box-size changes.
//
// Invariant: hiddenAtWidth is recorded iff the drawer is currently
// substituting for the menu.
type MenuCoordinator struct {
	surface  Surface
	viewport func() float64
	logger   *zap.Logger

	mu            sync.Mutex
	hiddenAtWidth *float64

	overflowUnsub Unsubscribe
	resizeUnsub   Unsubscribe
}

// NewMenuCoordinator wires a coordinator. viewport reports the current
// viewport width; it is sampled when the menu is hidden and on auto-revert
// checks.
func NewMenuCoordinator(surface Surface, viewport func() float64, logger *zap.Logger) *MenuCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuCoordinator{
		surface:  surface,
		viewport: viewport,
		logger:   logger.Named("menu"),
	}
}

// Start subscribes to the menu's overflow event (when the sources surface
// one) and to the header's box-size changes for the auto-revert check.
func (m *MenuCoordinator) Start(src Sources, headerTarget string) error {
	if ovf, ok := src.(OverflowSource); ok {
		unsub, err := ovf.ObserveOverflow(func(ev schemas.OverflowMinimumEvent) {
			m.HideMenu(ev.MinimumReached)
		})
		if err != nil {
			return err
		}
		m.overflowUnsub = unsub
	}

	unsub, err := src.ObserveResize(headerTarget, func(ResizeEntry) {
		m.checkRevert()
	})
	if err != nil {
		m.Close()
		return err
	}
	m.resizeUnsub = unsub
	return nil
}

// Close releases both subscriptions.
func (m *MenuCoordinator) Close() {
	if m.overflowUnsub != nil {
		m.overflowUnsub()
		m.overflowUnsub = nil
	}
	if m.resizeUnsub != nil {
		m.resizeUnsub()
		m.resizeUnsub = nil
	}
}

// HideMenu switches between the overflowing menu and the drawer.
// hide=true reveals the drawer, records the viewport width it happened at and
// visually hides the menu; hide=false reverses all three.
func (m *MenuCoordinator) HideMenu(hide bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hide {
		w := m.viewport()
		m.hiddenAtWidth = &w
		m.applyLocked(true)
		m.logger.Debug("Menu hidden; drawer substituted", zap.Float64("viewport_width", w))
		return
	}

	if m.hiddenAtWidth == nil {
		return
	}
	m.hiddenAtWidth = nil
	m.applyLocked(false)
	m.logger.Debug("Menu restored; drawer hidden")
}

func (m *MenuCoordinator) applyLocked(drawer bool) {
	if err := m.surface.SetDrawerVisible(drawer); err != nil {
		m.logger.Warn("Failed to toggle drawer", zap.Error(err))
	}
	if err := m.surface.SetMenuHidden(drawer); err != nil {
		m.logger.Warn("Failed to toggle menu", zap.Error(err))
	}
}

// checkRevert runs on every header box-size change: added width past the
// recorded substitution point means the menu would fit again.
func (m *MenuCoordinator) checkRevert() {
	m.mu.Lock()
	hidden := m.hiddenAtWidth
	m.mu.Unlock()

	if hidden == nil {
		return
	}
	if m.viewport() > *hidden {
		m.HideMenu(false)
	}
}

// DrawerVisible reports whether the drawer is currently substituting.
func (m *MenuCoordinator) DrawerVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hiddenAtWidth != nil
}

// HiddenAtWidth returns the viewport width recorded when the drawer was
// substituted.
func (m *MenuCoordinator) HiddenAtWidth() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hiddenAtWidth == nil {
		return 0, false
	}
	return *m.hiddenAtWidth, true
}
