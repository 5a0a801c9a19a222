//go:build windows

package window

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
	procGetWindowLongW           = user32.NewProc("GetWindowLongW")
	procSetWindowLongW           = user32.NewProc("SetWindowLongW")
	procSetLayeredWindowAttrs    = user32.NewProc("SetLayeredWindowAttributes")
)

const (
	hwndTopmost = ^uintptr(0) // (HWND)-1

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010

	gwlExStyle  = ^uintptr(19) // -20
	wsExLayered = 0x00080000

	lwaAlpha     = 0x02
	overlayAlpha = 230

	// WDA_EXCLUDEFROMCAPTURE keeps the overlay out of screen captures.
	wdaExcludeFromCapture = 0x11
)

func withHWND(win fyne.Window, fn func(hwnd uintptr)) error {
	nw, ok := win.(driver.NativeWindow)
	if !ok {
		return errors.New("native window access unavailable")
	}
	nw.RunNative(func(ctx any) {
		if wc, ok := ctx.(driver.WindowsWindowContext); ok {
			fn(wc.HWND)
		}
	})
	return nil
}

// moveNative positions the window without activating it, so showing or
// moving the overlay never steals focus from the user's editor.
func moveNative(win fyne.Window, x, y int) error {
	return withHWND(win, func(hwnd uintptr) {
		_, _, _ = procSetWindowPos.Call(hwnd, 0, uintptr(x), uintptr(y), 0, 0,
			swpNoSize|swpNoZOrder|swpNoActivate)
	})
}

func applyCapsNative(win fyne.Window, caps Caps) error {
	return withHWND(win, func(hwnd uintptr) {
		if caps.AlwaysOnTop {
			_, _, _ = procSetWindowPos.Call(hwnd, hwndTopmost, 0, 0, 0, 0,
				swpNoMove|swpNoSize|swpNoActivate)
		}
		if caps.Transparent {
			style, _, _ := procGetWindowLongW.Call(hwnd, gwlExStyle)
			_, _, _ = procSetWindowLongW.Call(hwnd, gwlExStyle, style|wsExLayered)
			_, _, _ = procSetLayeredWindowAttrs.Call(hwnd, 0, overlayAlpha, lwaAlpha)
		}
		if caps.ContentProtected {
			_, _, _ = procSetWindowDisplayAffinity.Call(hwnd, wdaExcludeFromCapture)
		}
	})
}
