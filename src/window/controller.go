package window

import (
	"image"
	"log"
	"runtime"
	"sync"
)

// Caps are the platform capability flags resolved once at window creation.
type Caps struct {
	AlwaysOnTop      bool
	Transparent      bool
	ContentProtected bool
}

// CapsFor resolves capability flags for a host platform. Divergence between
// platforms is configuration here, not a design branch elsewhere.
func CapsFor(goos string) Caps {
	switch goos {
	case "windows":
		return Caps{AlwaysOnTop: true, Transparent: true, ContentProtected: true}
	case "darwin":
		return Caps{AlwaysOnTop: true, Transparent: true, ContentProtected: true}
	default:
		return Caps{AlwaysOnTop: true}
	}
}

// Host is the native window the controller drives. The fyne-backed
// implementation lives in fyne_host.go; tests use a fake.
type Host interface {
	// Show may activate the window on some platforms (fyne offers no
	// no-activate show); the controller re-applies the capability flags
	// right after, which restores the no-activate topmost z-order.
	Show()
	Hide()
	Resize(width, height int)
	// Move positions the window in virtual-screen coordinates without
	// activating it.
	Move(x, y int) error
	ApplyCaps(caps Caps) error
	Close()
}

// Controller owns the single overlay window. Geometry is authoritative here;
// the host is told about changes and failures degrade to logged no-ops.
type Controller struct {
	mu       sync.Mutex
	host     Host
	screen   image.Rectangle
	geo      Geometry
	caps     Caps
	visible  bool
	debugged bool
}

// New creates a controller for host on the given primary-screen bounds.
func New(host Host, screen image.Rectangle) *Controller {
	return &Controller{
		host:   host,
		screen: screen,
		geo:    initialGeometry(screen),
	}
}

// Create resolves the platform capability flags, applies them together with
// the initial geometry, and shows the window.
func (c *Controller) Create() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps = CapsFor(runtime.GOOS)
	if err := c.host.ApplyCaps(c.caps); err != nil {
		log.Printf("window: failed to apply capability flags %+v: %v", c.caps, err)
	}
	c.showLocked()
}

// Show restores the window at its remembered position and size without
// stealing input focus.
func (c *Controller) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visible {
		return
	}
	c.showLocked()
}

// showLocked shows the window and immediately re-applies the capability
// flags, since the host's Show may have activated the window.
func (c *Controller) showLocked() {
	c.applyLocked()
	c.host.Show()
	if err := c.host.ApplyCaps(c.caps); err != nil {
		log.Printf("window: failed to reassert capability flags: %v", err)
	}
	c.visible = true
}

// Hide conceals the window, keeping position and size for the next Show.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	c.host.Hide()
	c.visible = false
}

// Toggle flips visibility.
func (c *Controller) Toggle() {
	c.mu.Lock()
	visible := c.visible
	c.mu.Unlock()
	if visible {
		c.Hide()
	} else {
		c.Show()
	}
}

// Visible reports whether the window is currently shown.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// MoveBy steps the window one increment in dir.
func (c *Controller) MoveBy(dir Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.geo = Move(c.geo, dir, c.screen)
	if err := c.host.Move(c.geo.X, c.geo.Y); err != nil {
		log.Printf("window: move %s failed: %v", dir, err)
	}
}

// SetContentSize resizes the window to fit the requested content dimensions,
// clamped per the width fraction and height floor. Returns the applied
// geometry.
func (c *Controller) SetContentSize(width, height int) Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.geo = ClampContentSize(width, height, c.geo, c.screen, c.debugged)
	c.applyLocked()
	return c.geo
}

// MarkDebugged widens the allowed width bound for the rest of the session.
func (c *Controller) MarkDebugged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugged = true
}

// Geometry returns the current in-memory geometry.
func (c *Controller) Geometry() Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geo
}

// Close releases the native window.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host.Close()
	c.visible = false
}

func (c *Controller) applyLocked() {
	c.host.Resize(c.geo.Width, c.geo.Height)
	if err := c.host.Move(c.geo.X, c.geo.Y); err != nil {
		log.Printf("window: position failed: %v", err)
	}
}
