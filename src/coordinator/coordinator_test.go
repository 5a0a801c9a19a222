package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashankmahajan99/interview-coder/src/bridge"
	"github.com/shashankmahajan99/interview-coder/src/llm"
)

type fakeLLM struct {
	calls atomic.Int64

	extractErr error
	solveErr   error
	debugErr   error

	// When set, calls block here until the channel is closed.
	gate chan struct{}

	problem  *llm.ProblemInfo
	solution *llm.Solution
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		problem:  &llm.ProblemInfo{Statement: "two sum"},
		solution: &llm.Solution{Code: "def solve(): pass", TimeComplexity: "O(n)", SpaceComplexity: "O(n)"},
	}
}

func (f *fakeLLM) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeLLM) ExtractFromImages(ctx context.Context, images [][]byte) (*llm.ProblemInfo, error) {
	f.calls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.problem, nil
}

func (f *fakeLLM) ExtractFromText(ctx context.Context, query string) (*llm.ProblemInfo, error) {
	return f.ExtractFromImages(ctx, nil)
}

func (f *fakeLLM) Solve(ctx context.Context, problem *llm.ProblemInfo, language string) (*llm.Solution, error) {
	f.calls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.solveErr != nil {
		return nil, f.solveErr
	}
	return f.solution, nil
}

func (f *fakeLLM) Debug(ctx context.Context, problem *llm.ProblemInfo, code, language string, images [][]byte) (*llm.Solution, error) {
	f.calls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.debugErr != nil {
		return nil, f.debugErr
	}
	return &llm.Solution{Code: "fixed " + code, TimeComplexity: "O(n)", SpaceComplexity: "O(1)"}, nil
}

// recorder collects published events so tests can assert order and payloads.
type recorder struct {
	events chan bridge.Event
}

func record(t *testing.T, bus *bridge.Bus) *recorder {
	t.Helper()
	r := &recorder{events: make(chan bridge.Event, 32)}
	for _, name := range bridge.EventNames() {
		unsub := bus.Subscribe(name, func(ev bridge.Event) { r.events <- ev })
		t.Cleanup(unsub)
	}
	return r
}

func (r *recorder) next(t *testing.T) bridge.Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return bridge.Event{}
	}
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected event %q", ev.Name)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitForState(t *testing.T, c *Coordinator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %v, stuck at %v", want, c.State())
}

func newTestCoordinator(t *testing.T, fake *fakeLLM) (*Coordinator, *recorder) {
	t.Helper()
	bus := bridge.NewBus()
	t.Cleanup(bus.Close)
	rec := record(t, bus)
	return New(fake, bus, "python", time.Minute), rec
}

func TestSolvePublishesExtractionThenSolution(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}

	first := rec.next(t)
	if first.Name != bridge.EventExtractionSucceeded {
		t.Fatalf("expected extraction-succeeded first, got %q", first.Name)
	}
	second := rec.next(t)
	if second.Name != bridge.EventSolveSucceeded {
		t.Fatalf("expected solve-succeeded second, got %q", second.Name)
	}
	rec.expectNone(t)

	waitForState(t, c, StateDone)
	if c.Problem() == nil || c.Solution() == nil {
		t.Error("expected problem and solution cached after solve")
	}
}

func TestSolveUsesTextExtractionWithoutImages(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Query: "reverse a linked list"}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)
}

func TestSolveWithNoInputStaysIdle(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	err := c.Solve(Input{Query: "   "})
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	if ev := rec.next(t); ev.Name != bridge.EventNoQuery {
		t.Errorf("expected no-query notification, got %q", ev.Name)
	}
	if got := fake.calls.Load(); got != 0 {
		t.Errorf("expected no api calls, got %d", got)
	}
	if c.State() != StateIdle {
		t.Errorf("expected Idle, got %v", c.State())
	}
}

func TestSolveRejectedWhileInFlight(t *testing.T) {
	fake := newFakeLLM()
	fake.gate = make(chan struct{})
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	if err := c.Solve(Input{Images: [][]byte{{2}}}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for overlapping solve, got %v", err)
	}
	if err := c.Debug([][]byte{{3}}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for overlapping debug, got %v", err)
	}

	close(fake.gate)
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)
}

func TestCancelDropsInFlightResult(t *testing.T) {
	fake := newFakeLLM()
	fake.gate = make(chan struct{})
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	c.Cancel()
	if c.State() != StateIdle {
		t.Fatalf("expected Idle after cancel, got %v", c.State())
	}

	// Even if the call later resolves successfully, nothing may surface.
	close(fake.gate)
	rec.expectNone(t)
	if c.Problem() != nil || c.Solution() != nil {
		t.Error("cancelled attempt must not populate results")
	}
}

func TestQuotaFailureMapsToOutOfCredits(t *testing.T) {
	fake := newFakeLLM()
	fake.extractErr = fmt.Errorf("%w: add credits", llm.ErrQuotaExceeded)
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	if ev := rec.next(t); ev.Name != bridge.EventOutOfCredits {
		t.Errorf("expected out-of-credits, got %q", ev.Name)
	}
	waitForState(t, c, StateIdle)
}

func TestUnauthorizedDuringSolvePhase(t *testing.T) {
	fake := newFakeLLM()
	fake.solveErr = fmt.Errorf("%w: bad key", llm.ErrUnauthorized)
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	if ev := rec.next(t); ev.Name != bridge.EventExtractionSucceeded {
		t.Fatalf("expected extraction-succeeded, got %q", ev.Name)
	}
	if ev := rec.next(t); ev.Name != bridge.EventUnauthorized {
		t.Errorf("expected unauthorized, got %q", ev.Name)
	}
	waitForState(t, c, StateIdle)
}

func TestMalformedResponseCarriesRawOutput(t *testing.T) {
	fake := newFakeLLM()
	fake.extractErr = &llm.MalformedResponseError{Raw: "not json", Err: errors.New("invalid character")}
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	ev := rec.next(t)
	if ev.Name != bridge.EventExtractionFailed {
		t.Fatalf("expected extraction-failed, got %q", ev.Name)
	}
	payload, ok := ev.Payload.(ErrorPayload)
	if !ok {
		t.Fatalf("expected ErrorPayload, got %T", ev.Payload)
	}
	if payload.Raw != "not json" {
		t.Errorf("expected raw output in payload, got %q", payload.Raw)
	}
	waitForState(t, c, StateIdle)
}

func TestDebugRequiresPriorSolution(t *testing.T) {
	fake := newFakeLLM()
	c, _ := newTestCoordinator(t, fake)

	if err := c.Debug([][]byte{{1}}); !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
}

func TestDebugProducesNewCodeFromOld(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)

	if err := c.Debug([][]byte{{2}}); err != nil {
		t.Fatalf("debug failed to start: %v", err)
	}
	ev := rec.next(t)
	if ev.Name != bridge.EventDebugSucceeded {
		t.Fatalf("expected debug-succeeded, got %q", ev.Name)
	}
	payload, ok := ev.Payload.(DebugPayload)
	if !ok {
		t.Fatalf("expected DebugPayload, got %T", ev.Payload)
	}
	if payload.OldCode != "def solve(): pass" {
		t.Errorf("unexpected old code %q", payload.OldCode)
	}
	if payload.NewCode != "fixed def solve(): pass" {
		t.Errorf("unexpected new code %q", payload.NewCode)
	}
	waitForState(t, c, StateDone)
}

func TestDebugWithoutScreenshotsPublishesNoQuery(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)

	if err := c.Debug(nil); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	if ev := rec.next(t); ev.Name != bridge.EventNoQuery {
		t.Errorf("expected no-query, got %q", ev.Name)
	}
}

func TestResetClearsCachedResults(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)

	c.Reset()
	if c.State() != StateIdle {
		t.Errorf("expected Idle after reset, got %v", c.State())
	}
	if c.Problem() != nil || c.Solution() != nil {
		t.Error("expected cached results cleared after reset")
	}
}

func TestSolveFromDoneStartsOver(t *testing.T) {
	fake := newFakeLLM()
	c, rec := newTestCoordinator(t, fake)

	if err := c.Solve(Input{Images: [][]byte{{1}}}); err != nil {
		t.Fatalf("solve failed to start: %v", err)
	}
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)

	if err := c.Solve(Input{Images: [][]byte{{2}}}); err != nil {
		t.Fatalf("solve from done failed to start: %v", err)
	}
	rec.next(t)
	rec.next(t)
	waitForState(t, c, StateDone)
}
