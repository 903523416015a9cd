package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/models"
)

// Config holds submission controller configuration.
type Config struct {
	// DiscardStale drops outcomes from submissions that were superseded
	// before they resolved. Off by default: the last response to resolve wins.
	DiscardStale bool
}

// DefaultConfig returns the controller config, reading from viper when available.
func DefaultConfig() Config {
	return Config{
		DiscardStale: viper.GetBool("review.discard_stale"),
	}
}

// Reviewer sends code to a review service.
type Reviewer interface {
	Review(ctx context.Context, code string) (*models.ReviewResponse, error)
}

// Submission is one dispatched review request.
type Submission struct {
	Generation uint64
	Request    models.ReviewRequest
}

// Outcome is the resolved result of a Submission.
type Outcome struct {
	Generation uint64
	Response   *models.ReviewResponse
	Err        error
}

// Controller tracks the lifecycle of review submissions.
//
// Submissions are never de-duplicated or cancelled. Each one bumps the
// generation token; when an outcome arrives it overwrites the status unless
// DiscardStale is set and a newer submission exists.
//
// Observers are called one at a time, in the order transitions are applied.
// An observer may read Status but must not call Begin, Complete or Submit.
type Controller struct {
	reviewer Reviewer
	cfg      Config

	// notifyMu is held from applying a transition until its observers return.
	notifyMu sync.Mutex

	mu        sync.Mutex
	fsm       *phaseMachine
	gen       uint64
	inFlight  int
	status    Status
	observers []func(Status)
}

// NewController creates a controller that dispatches through r.
func NewController(r Reviewer, cfg Config) (*Controller, error) {
	if r == nil {
		return nil, errors.New("reviewer is required")
	}
	fsm, err := newPhaseMachine()
	if err != nil {
		return nil, err
	}
	return &Controller{
		reviewer: r,
		cfg:      cfg,
		fsm:      fsm,
		status:   Status{Phase: PhaseIdle},
	}, nil
}

// Status returns a snapshot of the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers fn to be called after every applied transition.
func (c *Controller) Subscribe(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Begin moves the controller to pending and returns the submission to dispatch.
// The request carries code exactly as given.
func (c *Controller) Begin(code string) Submission {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	phase, err := c.fsm.Fire(EventSubmit)
	if err != nil {
		// submit is accepted from every phase
		panic(fmt.Sprintf("submission machine: %v", err))
	}
	c.gen++
	c.inFlight++
	c.status = Status{Phase: phase, Generation: c.gen, InFlight: c.inFlight}
	sub := Submission{Generation: c.gen, Request: models.ReviewRequest{Code: code}}
	snapshot, observers := c.status, c.observersLocked()
	c.mu.Unlock()

	notify(observers, snapshot)
	return sub
}

// Dispatch performs the network call for sub. It does not touch the status.
func (c *Controller) Dispatch(ctx context.Context, sub Submission) Outcome {
	resp, err := c.reviewer.Review(ctx, sub.Request.Code)
	if err != nil {
		return Outcome{Generation: sub.Generation, Err: err}
	}
	return Outcome{Generation: sub.Generation, Response: resp}
}

// Complete applies out to the status and reports whether it was applied.
func (c *Controller) Complete(out Outcome) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if out.Generation == 0 || out.Generation > c.gen {
		c.mu.Unlock()
		return false
	}
	if c.inFlight > 0 {
		c.inFlight--
	}
	if c.cfg.DiscardStale && out.Generation < c.gen {
		c.status.InFlight = c.inFlight
		c.mu.Unlock()
		return false
	}

	event := EventResolve
	if out.Err != nil {
		event = EventReject
	}
	phase, err := c.fsm.Fire(event)
	if err != nil {
		c.mu.Unlock()
		return false
	}
	c.status = Status{
		Phase:      phase,
		Generation: out.Generation,
		Response:   out.Response,
		Err:        out.Err,
		InFlight:   c.inFlight,
	}
	snapshot, observers := c.status, c.observersLocked()
	c.mu.Unlock()

	notify(observers, snapshot)
	return true
}

// Submit begins a submission, dispatches it in the background and returns a
// channel that yields its outcome once it has been applied.
func (c *Controller) Submit(ctx context.Context, code string) <-chan Outcome {
	sub := c.Begin(code)
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		out := c.Dispatch(ctx, sub)
		c.Complete(out)
		ch <- out
	}()
	return ch
}

func (c *Controller) observersLocked() []func(Status) {
	if len(c.observers) == 0 {
		return nil
	}
	return append([]func(Status){}, c.observers...)
}

func notify(observers []func(Status), s Status) {
	for _, fn := range observers {
		fn(s)
	}
}
