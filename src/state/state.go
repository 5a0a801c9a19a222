package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"

	"github.com/shashankmahajan99/interview-coder/src/auth"
	"github.com/shashankmahajan99/interview-coder/src/bridge"
	"github.com/shashankmahajan99/interview-coder/src/clipboard"
	"github.com/shashankmahajan99/interview-coder/src/config"
	"github.com/shashankmahajan99/interview-coder/src/coordinator"
	"github.com/shashankmahajan99/interview-coder/src/hotkey"
	"github.com/shashankmahajan99/interview-coder/src/llm"
	"github.com/shashankmahajan99/interview-coder/src/screenshot"
	"github.com/shashankmahajan99/interview-coder/src/store"
	"github.com/shashankmahajan99/interview-coder/src/window"
)

// View names the screen the UI is showing.
type View string

const (
	ViewQueue     View = "queue"
	ViewSolutions View = "solutions"
)

// Mode selects how the problem is supplied.
type Mode string

const (
	ModeScreenshot Mode = "screenshot"
	ModeText       Mode = "text"
)

// Processor is the slice of the coordinator the app drives.
type Processor interface {
	Solve(coordinator.Input) error
	Debug(images [][]byte) error
	Cancel()
	Reset()
	State() coordinator.State
	Solution() *llm.Solution
}

// CredStore persists the signed-in session.
type CredStore interface {
	Save(auth.Session) error
	Clear() error
}

type keychainCreds struct{}

func (keychainCreds) Save(s auth.Session) error { return auth.Save(s) }
func (keychainCreds) Clear() error              { return auth.Clear() }

// Options override the platform integrations, mainly for tests.
type Options struct {
	Capture   func() (*image.RGBA, error)
	Clipboard func(string) error
	Creds     CredStore
}

// App is the composition root: the one shared session object every shortcut
// and IPC handler operates on. Constructed once in main and passed by
// reference; there is no package-level instance.
type App struct {
	mu      sync.Mutex
	store   *store.Store
	window  *window.Controller
	proc    Processor
	bus     *bridge.Bus
	capture func() (*image.RGBA, error)
	copyFn  func(string) error
	creds   CredStore

	view   View
	mode   Mode
	query  string
	unsubs []bridge.Unsubscribe
}

// New wires the composition root and subscribes it to the coordinator's
// lifecycle notifications.
func New(st *store.Store, win *window.Controller, proc Processor, bus *bridge.Bus, opts Options) *App {
	a := &App{
		store:   st,
		window:  win,
		proc:    proc,
		bus:     bus,
		capture: opts.Capture,
		copyFn:  opts.Clipboard,
		creds:   opts.Creds,
		view:    ViewQueue,
		mode:    ModeScreenshot,
	}
	if a.capture == nil {
		a.capture = screenshot.Capture
	}
	if a.copyFn == nil {
		a.copyFn = clipboard.Write
	}
	if a.creds == nil {
		a.creds = keychainCreds{}
	}

	a.unsubs = append(a.unsubs,
		bus.Subscribe(bridge.EventSolveSucceeded, func(bridge.Event) { a.setView(ViewSolutions) }),
		bus.Subscribe(bridge.EventDebugSucceeded, func(bridge.Event) { a.window.MarkDebugged() }),
		bus.Subscribe(bridge.EventUnauthorized, func(bridge.Event) { a.onUnauthorized() }),
	)
	return a
}

// Close releases the app's bus subscriptions.
func (a *App) Close() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
}

// View returns the current UI view.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Mode returns the current input mode.
func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Query returns the free-text problem query.
func (a *App) Query() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// SetQuery stores the free-text problem query.
func (a *App) SetQuery(q string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query = q
}

func (a *App) setView(v View) {
	a.mu.Lock()
	a.view = v
	a.mu.Unlock()
}

// ToggleMode flips between screenshot and text input and notifies the UI.
func (a *App) ToggleMode() Mode {
	a.mu.Lock()
	if a.mode == ModeScreenshot {
		a.mode = ModeText
	} else {
		a.mode = ModeScreenshot
	}
	mode := a.mode
	a.mu.Unlock()

	a.bus.Publish(bridge.EventModeChanged, map[string]string{"mode": string(mode)})
	return mode
}

// CaptureScreenshot hides the overlay, captures the full screen, restores the
// overlay, and queues the image: into the main queue while composing, into
// the extra queue once a solution is on screen (supplement for a debug pass).
func (a *App) CaptureScreenshot() (store.Record, error) {
	wasVisible := a.window.Visible()
	if wasVisible {
		a.window.Hide()
	}
	img, err := a.capture()
	if wasVisible {
		a.window.Show()
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("capture failed: %w", err)
	}

	queue := store.QueueMain
	if a.View() == ViewSolutions {
		queue = store.QueueExtra
	}
	rec, err := a.store.Add(queue, img)
	if err != nil {
		return store.Record{}, err
	}

	a.bus.Publish(bridge.EventScreenshotTaken, map[string]string{
		"path":    rec.Path,
		"preview": rec.Preview,
		"queue":   string(queue),
	})
	return rec, nil
}

// Solve starts the extract-then-solve flow from the current input mode.
func (a *App) Solve() error {
	a.mu.Lock()
	mode, query := a.mode, a.query
	a.mu.Unlock()

	input := coordinator.Input{}
	if mode == ModeScreenshot {
		images, err := a.store.Images(store.QueueMain)
		if err != nil {
			return err
		}
		input.Images = images
	} else {
		input.Query = query
	}
	return a.proc.Solve(input)
}

// Debug starts a debug pass over the extra-queue screenshots.
func (a *App) Debug() error {
	images, err := a.store.Images(store.QueueExtra)
	if err != nil {
		return err
	}
	return a.proc.Debug(images)
}

// Cancel aborts the in-flight request, if any.
func (a *App) Cancel() {
	a.proc.Cancel()
}

// Reset is the one atomic-in-effect action: cancel any in-flight request,
// empty both queues, drop cached problem metadata and the query, return to
// the initial view, and only then notify the UI.
func (a *App) Reset() {
	a.proc.Reset()
	a.store.ClearAll()
	a.mu.Lock()
	a.query = ""
	a.view = ViewQueue
	a.mu.Unlock()
	a.bus.Publish(bridge.EventResetView, nil)
}

// ClearQueues empties both screenshot queues. Cached problem metadata goes
// with them; a queue wipe invalidates whatever was extracted from it.
func (a *App) ClearQueues() {
	a.proc.Reset()
	a.store.ClearAll()
}

// CopyCode writes the latest solution's code to the system clipboard.
func (a *App) CopyCode() error {
	sol := a.proc.Solution()
	if sol == nil || sol.Code == "" {
		return errors.New("no solution to copy")
	}
	return a.copyFn(sol.Code)
}

// SetCredentials stores the session tokens in the OS keychain.
func (a *App) SetCredentials(s auth.Session) error {
	return a.creds.Save(s)
}

// ClearCredentials signs the session out.
func (a *App) ClearCredentials() error {
	return a.creds.Clear()
}

// onUnauthorized clears the stored session and forces the UI back to the
// sign-in flow via a view reset.
func (a *App) onUnauthorized() {
	if err := a.creds.Clear(); err != nil {
		log.Printf("state: failed to clear credentials: %v", err)
	}
	a.store.ClearAll()
	a.mu.Lock()
	a.query = ""
	a.view = ViewQueue
	a.mu.Unlock()
	a.bus.Publish(bridge.EventResetView, nil)
}

// RegisterOps binds the full IPC operation whitelist onto srv.
func (a *App) RegisterOps(srv *bridge.Server) {
	srv.Handle(bridge.OpCaptureScreenshot, func(json.RawMessage) (any, error) {
		return a.CaptureScreenshot()
	})

	srv.Handle(bridge.OpListScreenshots, func(payload json.RawMessage) (any, error) {
		var req struct {
			Queue string `json:"queue"`
		}
		decodeOptional(payload, &req)
		queue := store.QueueMain
		if req.Queue == string(store.QueueExtra) {
			queue = store.QueueExtra
		}
		return a.store.List(queue), nil
	})

	srv.Handle(bridge.OpDeleteScreenshot, func(payload json.RawMessage) (any, error) {
		var req struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(payload, &req); err != nil || req.Path == "" {
			return nil, errors.New("missing screenshot path")
		}
		return nil, a.store.Delete(req.Path)
	})

	srv.Handle(bridge.OpClearQueues, func(json.RawMessage) (any, error) {
		a.ClearQueues()
		return nil, nil
	})

	srv.Handle(bridge.OpStartSolve, func(json.RawMessage) (any, error) {
		return nil, a.Solve()
	})

	srv.Handle(bridge.OpStartDebug, func(json.RawMessage) (any, error) {
		return nil, a.Debug()
	})

	srv.Handle(bridge.OpCancelRequest, func(json.RawMessage) (any, error) {
		a.Cancel()
		return nil, nil
	})

	srv.Handle(bridge.OpReset, func(json.RawMessage) (any, error) {
		a.Reset()
		return nil, nil
	})

	srv.Handle(bridge.OpSetQuery, func(payload json.RawMessage) (any, error) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, errors.New("malformed query payload")
		}
		a.SetQuery(req.Query)
		return nil, nil
	})

	srv.Handle(bridge.OpToggleMode, func(json.RawMessage) (any, error) {
		return map[string]string{"mode": string(a.ToggleMode())}, nil
	})

	srv.Handle(bridge.OpUpdateContentSize, func(payload json.RawMessage) (any, error) {
		var req struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, errors.New("malformed size payload")
		}
		return a.window.SetContentSize(req.Width, req.Height), nil
	})

	srv.Handle(bridge.OpMoveWindow, func(payload json.RawMessage) (any, error) {
		var req struct {
			Direction string `json:"direction"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, errors.New("malformed move payload")
		}
		dir, err := window.ParseDirection(req.Direction)
		if err != nil {
			return nil, err
		}
		a.window.MoveBy(dir)
		return nil, nil
	})

	srv.Handle(bridge.OpToggleWindow, func(json.RawMessage) (any, error) {
		a.window.Toggle()
		return nil, nil
	})

	srv.Handle(bridge.OpSetCredentials, func(payload json.RawMessage) (any, error) {
		var s auth.Session
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, errors.New("malformed credentials payload")
		}
		return nil, a.SetCredentials(s)
	})

	srv.Handle(bridge.OpClearCredentials, func(json.RawMessage) (any, error) {
		return nil, a.ClearCredentials()
	})

	srv.Handle(bridge.OpCopyCode, func(json.RawMessage) (any, error) {
		return nil, a.CopyCode()
	})
}

// RegisterShortcuts binds the global hotkey table onto d. Slow actions run on
// their own goroutine so the hook loop is never stalled.
func (a *App) RegisterShortcuts(d *hotkey.Dispatcher, hk config.Hotkeys) error {
	table := []struct {
		combo  string
		action hotkey.Action
	}{
		{hk.Capture, func() { go a.hotkeyCapture() }},
		{hk.Solve, func() { go a.hotkeySolve() }},
		{hk.Reset, a.Reset},
		{hk.MoveLeft, func() { a.window.MoveBy(window.Left) }},
		{hk.MoveRight, func() { a.window.MoveBy(window.Right) }},
		{hk.MoveUp, func() { a.window.MoveBy(window.Up) }},
		{hk.MoveDown, func() { a.window.MoveBy(window.Down) }},
		{hk.ToggleWindow, a.window.Toggle},
		{hk.ToggleMode, func() { a.ToggleMode() }},
		{hk.CopyCode, func() {
			if err := a.CopyCode(); err != nil {
				log.Printf("state: copy code: %v", err)
			}
		}},
	}
	for _, entry := range table {
		if err := d.Register(entry.combo, entry.action); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) hotkeyCapture() {
	if _, err := a.CaptureScreenshot(); err != nil {
		log.Printf("state: capture shortcut: %v", err)
	}
}

// hotkeySolve runs solve while composing and a debug pass once a solution is
// on screen.
func (a *App) hotkeySolve() {
	var err error
	if a.proc.State() == coordinator.StateDone && a.View() == ViewSolutions {
		err = a.Debug()
	} else {
		err = a.Solve()
	}
	if err != nil && !errors.Is(err, coordinator.ErrNoInput) {
		log.Printf("state: solve shortcut: %v", err)
	}
}

func decodeOptional(payload json.RawMessage, v any) {
	if len(payload) == 0 || strings.TrimSpace(string(payload)) == "null" {
		return
	}
	if err := json.Unmarshal(payload, v); err != nil {
		log.Printf("state: ignoring malformed optional payload: %v", err)
	}
}
