package coordinator

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shashankmahajan99/interview-coder/src/bridge"
	"github.com/shashankmahajan99/interview-coder/src/llm"
)

// State of the processing pipeline. Cancelled and Failed are transient
// per-attempt outcomes that return control to Idle rather than states the
// coordinator rests in.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateSolving
	StateDone
	StateDebugging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateSolving:
		return "solving"
	case StateDone:
		return "done"
	case StateDebugging:
		return "debugging"
	}
	return "unknown"
}

var (
	// ErrBusy rejects a new attempt while one is in flight. Overlapping
	// requests are rejected, never silently restarted.
	ErrBusy = errors.New("a request is already in flight")
	// ErrNoInput means there was nothing to process; a no-query
	// notification has already been published.
	ErrNoInput = errors.New("no input to process")
	// ErrNoSolution rejects a debug pass without a completed solve.
	ErrNoSolution = errors.New("no solution to debug")
)

// LLM is the slice of the API client the coordinator needs. Tests substitute
// a scripted fake.
type LLM interface {
	ExtractFromImages(ctx context.Context, images [][]byte) (*llm.ProblemInfo, error)
	ExtractFromText(ctx context.Context, query string) (*llm.ProblemInfo, error)
	Solve(ctx context.Context, problem *llm.ProblemInfo, language string) (*llm.Solution, error)
	Debug(ctx context.Context, problem *llm.ProblemInfo, code, language string, images [][]byte) (*llm.Solution, error)
}

// Input for a solve attempt: screenshots in screenshot mode, free text in
// text mode.
type Input struct {
	Images [][]byte
	Query  string
}

// ErrorPayload accompanies failure notifications. Raw carries the model
// output when the failure was a schema violation.
type ErrorPayload struct {
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

// DebugPayload accompanies debug-succeeded notifications.
type DebugPayload struct {
	OldCode         string   `json:"old_code"`
	NewCode         string   `json:"new_code"`
	Thoughts        []string `json:"thoughts"`
	TimeComplexity  string   `json:"time_complexity"`
	SpaceComplexity string   `json:"space_complexity"`
}

type phase int

const (
	phaseExtract phase = iota
	phaseSolve
	phaseDebug
)

func (p phase) failEvent() string {
	switch p {
	case phaseExtract:
		return bridge.EventExtractionFailed
	case phaseSolve:
		return bridge.EventSolveFailed
	default:
		return bridge.EventDebugFailed
	}
}

// Coordinator owns the extract/solve/debug pipeline. At most one attempt is
// active; results of superseded attempts are discarded by attempt-id
// comparison even if the underlying call later resolves.
type Coordinator struct {
	mu        sync.Mutex
	llm       LLM
	bus       *bridge.Bus
	language  string
	deadline  time.Duration
	state     State
	attemptID uint64
	cancel    context.CancelFunc
	problem   *llm.ProblemInfo
	solution  *llm.Solution
}

func New(client LLM, bus *bridge.Bus, language string, deadline time.Duration) *Coordinator {
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	return &Coordinator{llm: client, bus: bus, language: language, deadline: deadline}
}

// State returns the current pipeline state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Problem returns the cached extraction result, if any.
func (c *Coordinator) Problem() *llm.ProblemInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.problem
}

// Solution returns the cached solve/debug result, if any.
func (c *Coordinator) Solution() *llm.Solution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.solution
}

// Solve starts the extract-then-solve flow. While an attempt is in flight it
// returns ErrBusy; with nothing to process it publishes a no-query
// notification, stays Idle, and returns ErrNoInput. A solve from Done starts
// over on the new input.
func (c *Coordinator) Solve(input Input) error {
	c.mu.Lock()
	if c.inFlightLocked() {
		c.mu.Unlock()
		return ErrBusy
	}
	if len(input.Images) == 0 && strings.TrimSpace(input.Query) == "" {
		c.mu.Unlock()
		c.bus.Publish(bridge.EventNoQuery, ErrorPayload{Message: "add a screenshot or type a problem first"})
		return ErrNoInput
	}

	c.attemptID++
	id := c.attemptID
	ctx, cancel := context.WithTimeout(context.Background(), c.deadline)
	c.cancel = cancel
	c.state = StateExtracting
	c.mu.Unlock()

	go c.runSolve(ctx, cancel, id, input)
	return nil
}

// Debug starts a debug pass over the cached problem and solution with fresh
// screenshots.
func (c *Coordinator) Debug(images [][]byte) error {
	c.mu.Lock()
	if c.inFlightLocked() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state != StateDone || c.solution == nil {
		c.mu.Unlock()
		return ErrNoSolution
	}
	if len(images) == 0 {
		c.mu.Unlock()
		c.bus.Publish(bridge.EventNoQuery, ErrorPayload{Message: "capture screenshots of the current code first"})
		return ErrNoInput
	}

	c.attemptID++
	id := c.attemptID
	ctx, cancel := context.WithTimeout(context.Background(), c.deadline)
	c.cancel = cancel
	c.state = StateDebugging
	problem, oldCode := c.problem, c.solution.Code
	c.mu.Unlock()

	go c.runDebug(ctx, cancel, id, problem, oldCode, images)
	return nil
}

// Cancel aborts the in-flight attempt, if any, and returns the pipeline to
// Idle. The attempt's eventual result is discarded even if the external call
// later resolves. Cached results are untouched; Reset clears those.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.attemptID++ // invalidate pending result application
	c.state = StateIdle
	log.Printf("coordinator: attempt cancelled")
}

// Reset cancels any in-flight attempt and drops the cached problem and
// solution.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.attemptID++
	c.state = StateIdle
	c.problem = nil
	c.solution = nil
}

func (c *Coordinator) inFlightLocked() bool {
	return c.state == StateExtracting || c.state == StateSolving || c.state == StateDebugging
}

func (c *Coordinator) runSolve(ctx context.Context, cancel context.CancelFunc, id uint64, input Input) {
	defer cancel()

	var problem *llm.ProblemInfo
	var err error
	if len(input.Images) > 0 {
		problem, err = c.llm.ExtractFromImages(ctx, input.Images)
	} else {
		problem, err = c.llm.ExtractFromText(ctx, input.Query)
	}
	if err != nil {
		c.fail(id, phaseExtract, err)
		return
	}
	if !c.advance(id, bridge.EventExtractionSucceeded, problem, func() {
		c.problem = problem
		c.state = StateSolving
	}) {
		return
	}

	solution, err := c.llm.Solve(ctx, problem, c.language)
	if err != nil {
		c.fail(id, phaseSolve, err)
		return
	}
	c.advance(id, bridge.EventSolveSucceeded, solution, func() {
		c.solution = solution
		c.state = StateDone
		c.cancel = nil
	})
}

func (c *Coordinator) runDebug(ctx context.Context, cancel context.CancelFunc, id uint64, problem *llm.ProblemInfo, oldCode string, images [][]byte) {
	defer cancel()

	solution, err := c.llm.Debug(ctx, problem, oldCode, c.language, images)
	if err != nil {
		c.fail(id, phaseDebug, err)
		return
	}
	payload := DebugPayload{
		OldCode:         oldCode,
		NewCode:         solution.Code,
		Thoughts:        solution.Thoughts,
		TimeComplexity:  solution.TimeComplexity,
		SpaceComplexity: solution.SpaceComplexity,
	}
	c.advance(id, bridge.EventDebugSucceeded, payload, func() {
		c.solution = solution
		c.state = StateDone
		c.cancel = nil
	})
}

// advance applies a state transition and publishes its event, unless the
// attempt has been superseded. The publish happens under the lock so a
// concurrent Cancel can never interleave between the staleness check and the
// notification.
func (c *Coordinator) advance(id uint64, event string, payload any, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.attemptID {
		log.Printf("coordinator: dropping stale result for attempt %d", id)
		return false
	}
	apply()
	c.bus.Publish(event, payload)
	return true
}

// fail maps an attempt error to its notification and returns the pipeline to
// Idle. Stale and cancelled attempts are dropped silently.
func (c *Coordinator) fail(id uint64, p phase, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.attemptID {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	c.cancel = nil
	c.state = StateIdle

	switch {
	case errors.Is(err, llm.ErrQuotaExceeded):
		c.bus.Publish(bridge.EventOutOfCredits, ErrorPayload{Message: err.Error()})
	case errors.Is(err, llm.ErrUnauthorized):
		c.bus.Publish(bridge.EventUnauthorized, ErrorPayload{Message: err.Error()})
	default:
		payload := ErrorPayload{Message: err.Error()}
		var malformed *llm.MalformedResponseError
		if errors.As(err, &malformed) {
			payload.Raw = malformed.Raw
		}
		c.bus.Publish(p.failEvent(), payload)
	}
	log.Printf("coordinator: attempt %d failed in %v: %v", id, p.failEvent(), err)
}
