package tray

import (
	_ "embed"
	"log"

	"github.com/getlantern/systray"
)

//go:embed icon.svg
var iconData []byte

// Config wires tray menu items to application actions. Nil callbacks are
// skipped.
type Config struct {
	Tooltip        string
	OnCapture      func()
	OnToggleWindow func()
	OnQuit         func()
}

// Run starts the system tray and blocks until Quit. Callbacks fire on the
// tray's own goroutine.
func Run(cfg Config) {
	systray.Run(func() { onReady(cfg) }, func() {
		if cfg.OnQuit != nil {
			cfg.OnQuit()
		}
	})
}

// Quit tears the tray down and unblocks Run.
func Quit() {
	systray.Quit()
}

func onReady(cfg Config) {
	systray.SetIcon(iconData)
	systray.SetTitle("Interview Coder")
	if cfg.Tooltip != "" {
		systray.SetTooltip(cfg.Tooltip)
	}

	mCapture := systray.AddMenuItem("Capture Screenshot", "Capture the screen into the queue")
	mToggle := systray.AddMenuItem("Show/Hide Window", "Toggle the overlay window")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				if cfg.OnCapture != nil {
					cfg.OnCapture()
				}
			case <-mToggle.ClickedCh:
				if cfg.OnToggleWindow != nil {
					cfg.OnToggleWindow()
				}
			case <-mQuit.ClickedCh:
				log.Printf("tray: quit requested")
				systray.Quit()
				return
			}
		}
	}()
}
