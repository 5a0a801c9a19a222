package bridge

// Notification names pushed from the background process to the UI. Every name
// is part of the compatibility surface; renaming one breaks existing UIs.
const (
	EventScreenshotTaken     = "screenshot-taken"
	EventResetView           = "reset-view"
	EventModeChanged         = "mode-changed"
	EventExtractionSucceeded = "extraction-succeeded"
	EventExtractionFailed    = "extraction-failed"
	EventSolveSucceeded      = "solve-succeeded"
	EventSolveFailed         = "solve-failed"
	EventDebugSucceeded      = "debug-succeeded"
	EventDebugFailed         = "debug-failed"
	EventUnauthorized        = "unauthorized"
	EventOutOfCredits        = "out-of-credits"
	EventNoQuery             = "no-query"
)

// Operation names the UI may invoke. Same compatibility rule as events.
const (
	OpCaptureScreenshot = "capture-screenshot"
	OpListScreenshots   = "list-screenshots"
	OpDeleteScreenshot  = "delete-screenshot"
	OpClearQueues       = "clear-queues"
	OpStartSolve        = "start-solve"
	OpStartDebug        = "start-debug"
	OpCancelRequest     = "cancel-request"
	OpReset             = "reset"
	OpSetQuery          = "set-query"
	OpToggleMode        = "toggle-mode"
	OpUpdateContentSize = "update-content-size"
	OpMoveWindow        = "move-window"
	OpToggleWindow      = "toggle-window"
	OpSetCredentials    = "set-credentials"
	OpClearCredentials  = "clear-credentials"
	OpCopyCode          = "copy-code"
)

// EventNames returns every notification name, in a stable order. The bridge
// server subscribes to all of them so connected UI clients see the full feed.
func EventNames() []string {
	return []string{
		EventScreenshotTaken,
		EventResetView,
		EventModeChanged,
		EventExtractionSucceeded,
		EventExtractionFailed,
		EventSolveSucceeded,
		EventSolveFailed,
		EventDebugSucceeded,
		EventDebugFailed,
		EventUnauthorized,
		EventOutOfCredits,
		EventNoQuery,
	}
}
