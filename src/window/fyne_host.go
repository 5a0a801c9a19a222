package window

import (
	"fyne.io/fyne/v2"
)

// FyneHost drives the overlay through a fyne window. Positioning and
// capability flags go through the platform layer in native_*.go since fyne
// has no portable API for them.
type FyneHost struct {
	app fyne.App
	win fyne.Window
}

// NewFyneHost creates the overlay window on a. The window starts hidden; the
// controller decides when it appears.
func NewFyneHost(a fyne.App) *FyneHost {
	w := a.NewWindow("Interview Coder")
	w.SetPadded(false)
	// Closing the overlay hides it; quitting is the tray's job.
	w.SetCloseIntercept(func() { w.Hide() })
	return &FyneHost{app: a, win: w}
}

func (h *FyneHost) Show() { h.win.Show() }

func (h *FyneHost) Hide() { h.win.Hide() }

func (h *FyneHost) Resize(width, height int) {
	h.win.Resize(fyne.NewSize(float32(width), float32(height)))
}

func (h *FyneHost) Move(x, y int) error {
	return moveNative(h.win, x, y)
}

func (h *FyneHost) ApplyCaps(caps Caps) error {
	return applyCapsNative(h.win, caps)
}

func (h *FyneHost) Close() { h.win.Close() }
