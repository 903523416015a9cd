package review

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/models"
)

// fakeReviewer answers per code string and optionally blocks until released.
type fakeReviewer struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]*models.ReviewResponse
	errs      map[string]error
	gates     map[string]chan struct{}
}

func newFakeReviewer() *fakeReviewer {
	return &fakeReviewer{
		responses: map[string]*models.ReviewResponse{},
		errs:      map[string]error{},
		gates:     map[string]chan struct{}{},
	}
}

func (f *fakeReviewer) Review(_ context.Context, code string) (*models.ReviewResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	gate := f.gates[code]
	resp, err := f.responses[code], f.errs[code]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeReviewer) gate(code string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[code] = ch
	return ch
}

func (f *fakeReviewer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestController(t *testing.T, r Reviewer, cfg Config) *Controller {
	t.Helper()
	c, err := NewController(r, cfg)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestNewController_RequiresReviewer(t *testing.T) {
	if _, err := NewController(nil, Config{}); err == nil {
		t.Fatal("expected error for nil reviewer")
	}
}

func TestController_InitialStatusIsIdle(t *testing.T) {
	c := newTestController(t, newFakeReviewer(), Config{})
	if got := c.Status().Phase; got != PhaseIdle {
		t.Errorf("initial phase = %q, want %q", got, PhaseIdle)
	}
}

func TestController_DefaultCodeSucceeds(t *testing.T) {
	f := newFakeReviewer()
	code := SampleCode
	f.responses[code] = &models.ReviewResponse{
		Analysis: models.Some("ok"),
		Issues:   models.IssueList{"- unused variable"},
		Report:   models.Some("full text"),
	}
	c := newTestController(t, f, Config{})

	out := waitOutcome(t, c.Submit(context.Background(), code))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}

	st := c.Status()
	if st.Phase != PhaseSucceeded {
		t.Fatalf("phase = %q, want %q", st.Phase, PhaseSucceeded)
	}
	v := Normalize(st.Response)
	if len(v.Issues) != 1 || v.Issues[0] != "unused variable" {
		t.Errorf("issues = %v, want [unused variable]", v.Issues)
	}
	if v.Report != "full text" {
		t.Errorf("report = %q, want %q", v.Report, "full text")
	}
}

func TestController_BeginUsesTextAtTriggerTime(t *testing.T) {
	c := newTestController(t, newFakeReviewer(), Config{})

	buffer := "first draft"
	sub := c.Begin(buffer)
	buffer = "edited after trigger"

	if sub.Request.Code != "first draft" {
		t.Errorf("request code = %q, want %q", sub.Request.Code, "first draft")
	}
	if buffer == sub.Request.Code {
		t.Error("request should not track later edits")
	}
}

func TestController_AcceptsEmptyCode(t *testing.T) {
	f := newFakeReviewer()
	f.responses[""] = &models.ReviewResponse{}
	c := newTestController(t, f, Config{})

	out := waitOutcome(t, c.Submit(context.Background(), ""))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if f.calls[0] != "" {
		t.Errorf("dispatched code = %q, want empty", f.calls[0])
	}
	if c.Status().Phase != PhaseSucceeded {
		t.Errorf("phase = %q, want succeeded", c.Status().Phase)
	}
}

func TestController_FailureThenSuccessOverwrites(t *testing.T) {
	f := newFakeReviewer()
	f.errs["broken"] = errors.New("connection refused")
	f.responses["fixed"] = &models.ReviewResponse{Report: models.Some("r")}
	c := newTestController(t, f, Config{})

	waitOutcome(t, c.Submit(context.Background(), "broken"))
	st := c.Status()
	if st.Phase != PhaseFailed {
		t.Fatalf("phase = %q, want failed", st.Phase)
	}
	if st.Response != nil {
		t.Error("failed status should carry no response")
	}
	if st.Err == nil {
		t.Error("failed status should carry the error")
	}

	waitOutcome(t, c.Submit(context.Background(), "fixed"))
	st = c.Status()
	if st.Phase != PhaseSucceeded {
		t.Fatalf("phase = %q, want succeeded", st.Phase)
	}
	if st.Err != nil {
		t.Errorf("succeeded status kept error: %v", st.Err)
	}
	if got := Normalize(st.Response).Report; got != "r" {
		t.Errorf("report = %q, want r", got)
	}
}

func TestController_LastResolvedWins(t *testing.T) {
	f := newFakeReviewer()
	f.responses["first"] = &models.ReviewResponse{Analysis: models.Some("first payload")}
	f.responses["second"] = &models.ReviewResponse{Analysis: models.Some("second payload")}
	releaseFirst := f.gate("first")
	releaseSecond := f.gate("second")
	c := newTestController(t, f, Config{})

	ch1 := c.Submit(context.Background(), "first")
	ch2 := c.Submit(context.Background(), "second")

	if st := c.Status(); st.Phase != PhasePending || st.InFlight != 2 {
		t.Fatalf("status = %+v, want pending with 2 in flight", st)
	}

	close(releaseSecond)
	waitOutcome(t, ch2)
	if got := c.Status().Response.Analysis.Value; got != "second payload" {
		t.Fatalf("after second resolves analysis = %q", got)
	}

	close(releaseFirst)
	waitOutcome(t, ch1)

	st := c.Status()
	if st.Phase != PhaseSucceeded {
		t.Fatalf("phase = %q, want succeeded", st.Phase)
	}
	if got := st.Response.Analysis.Value; got != "first payload" {
		t.Errorf("analysis = %q, want the last resolved payload", got)
	}
	if st.Generation != 1 {
		t.Errorf("generation = %d, want 1", st.Generation)
	}
	if st.InFlight != 0 {
		t.Errorf("in flight = %d, want 0", st.InFlight)
	}
}

func TestController_DiscardStale(t *testing.T) {
	f := newFakeReviewer()
	f.responses["first"] = &models.ReviewResponse{Analysis: models.Some("first payload")}
	f.responses["second"] = &models.ReviewResponse{Analysis: models.Some("second payload")}
	releaseFirst := f.gate("first")
	releaseSecond := f.gate("second")
	c := newTestController(t, f, Config{DiscardStale: true})

	ch1 := c.Submit(context.Background(), "first")
	ch2 := c.Submit(context.Background(), "second")

	close(releaseSecond)
	waitOutcome(t, ch2)
	close(releaseFirst)
	waitOutcome(t, ch1)

	st := c.Status()
	if got := st.Response.Analysis.Value; got != "second payload" {
		t.Errorf("analysis = %q, want the newest submission's payload", got)
	}
	if st.Generation != 2 {
		t.Errorf("generation = %d, want 2", st.Generation)
	}
	if st.InFlight != 0 {
		t.Errorf("in flight = %d, want 0", st.InFlight)
	}
}

func TestController_SubmitWhilePendingStillDispatches(t *testing.T) {
	f := newFakeReviewer()
	f.responses["a"] = &models.ReviewResponse{}
	release := f.gate("a")
	c := newTestController(t, f, Config{})

	ch1 := c.Submit(context.Background(), "a")
	ch2 := c.Submit(context.Background(), "a")
	close(release)
	waitOutcome(t, ch1)
	waitOutcome(t, ch2)

	if got := f.callCount(); got != 2 {
		t.Errorf("reviewer calls = %d, want 2", got)
	}
}

func TestController_PhaseSequence(t *testing.T) {
	f := newFakeReviewer()
	f.responses["ok"] = &models.ReviewResponse{}
	f.errs["bad"] = errors.New("boom")
	c := newTestController(t, f, Config{})

	var mu sync.Mutex
	var phases []Phase
	c.Subscribe(func(s Status) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	waitOutcome(t, c.Submit(context.Background(), "ok"))
	waitOutcome(t, c.Submit(context.Background(), "bad"))
	waitOutcome(t, c.Submit(context.Background(), "ok"))

	want := []Phase{PhasePending, PhaseSucceeded, PhasePending, PhaseFailed, PhasePending, PhaseSucceeded}
	mu.Lock()
	defer mu.Unlock()
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %q, want %q", i, phases[i], want[i])
		}
		if phases[i] == PhaseIdle {
			t.Errorf("idle re-entered at %d", i)
		}
	}
}

func TestController_ObserversNeverOverlap(t *testing.T) {
	f := newFakeReviewer()
	c := newTestController(t, f, Config{})

	var active, overlaps atomic.Int32
	var mu sync.Mutex
	var last Status
	c.Subscribe(func(s Status) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		last = s
		mu.Unlock()
		active.Add(-1)
	})

	const n = 8
	subs := make([]Submission, n)
	for i := range subs {
		subs[i] = c.Begin("code")
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Submission) {
			defer wg.Done()
			c.Complete(Outcome{Generation: sub.Generation, Response: &models.ReviewResponse{}})
		}(sub)
	}
	wg.Wait()

	if got := overlaps.Load(); got != 0 {
		t.Errorf("observers overlapped %d times", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if final := c.Status(); last.Generation != final.Generation || last.InFlight != final.InFlight {
		t.Errorf("last notified %+v, final status %+v", last, final)
	}
	if last.InFlight != 0 {
		t.Errorf("in flight = %d, want 0", last.InFlight)
	}
}

func TestController_CompleteIgnoresUnknownGeneration(t *testing.T) {
	c := newTestController(t, newFakeReviewer(), Config{})
	if c.Complete(Outcome{Generation: 0}) {
		t.Error("generation 0 should not apply")
	}
	if c.Complete(Outcome{Generation: 7}) {
		t.Error("future generation should not apply")
	}
	if c.Status().Phase != PhaseIdle {
		t.Errorf("phase = %q, want idle", c.Status().Phase)
	}
}

func TestController_SplitFlow(t *testing.T) {
	f := newFakeReviewer()
	f.responses["x"] = &models.ReviewResponse{Report: models.Some("done")}
	c := newTestController(t, f, Config{})

	sub := c.Begin("x")
	if c.Status().Phase != PhasePending {
		t.Fatalf("phase after Begin = %q", c.Status().Phase)
	}
	out := c.Dispatch(context.Background(), sub)
	if c.Status().Phase != PhasePending {
		t.Fatalf("Dispatch must not change phase, got %q", c.Status().Phase)
	}
	if !c.Complete(out) {
		t.Fatal("outcome should apply")
	}
	if c.Status().Phase != PhaseSucceeded {
		t.Errorf("phase = %q, want succeeded", c.Status().Phase)
	}
}

func TestDefaultConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if DefaultConfig().DiscardStale {
		t.Error("discard_stale should default to false")
	}
	viper.Set("review.discard_stale", true)
	if !DefaultConfig().DiscardStale {
		t.Error("expected discard_stale from viper")
	}
}
