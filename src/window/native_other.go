//go:build !windows

package window

import (
	"log"
	"sync"

	"fyne.io/fyne/v2"
)

var unsupportedOnce sync.Once

func logUnsupported() {
	unsupportedOnce.Do(func() {
		log.Printf("window: native positioning/capability flags not supported on this platform")
	})
}

func moveNative(win fyne.Window, x, y int) error {
	logUnsupported()
	return nil
}

func applyCapsNative(win fyne.Window, caps Caps) error {
	logUnsupported()
	return nil
}
