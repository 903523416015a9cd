package review

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"

	"github.com/joescharf/crev/internal/models"
)

// Phase is the lifecycle position of the current submission.
type Phase string

// State and event identifiers stay untyped so they convert to statekit's
// StateID and EventType.
const (
	StateIdle      = "idle"
	StatePending   = "pending"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"

	EventSubmit  = "submit"
	EventResolve = "resolve"
	EventReject  = "reject"
)

const (
	PhaseIdle      Phase = StateIdle
	PhasePending   Phase = StatePending
	PhaseSucceeded Phase = StateSucceeded
	PhaseFailed    Phase = StateFailed
)

func (p Phase) String() string { return string(p) }

// IsTerminal reports whether the phase holds a completed result.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// CanTransitionWith reports whether event is accepted in this phase.
func (p Phase) CanTransitionWith(event string) bool {
	machine, err := submissionMachine()
	if err != nil {
		return false
	}
	return transitionFor(machine, p, event) != nil
}

// Status is the authoritative submission state read by renderers.
type Status struct {
	Phase      Phase
	Generation uint64
	Response   *models.ReviewResponse
	Err        error
	InFlight   int
}

// submissionMachine is the single definition of which events each phase
// accepts. Terminal phases accept resolve/reject so a late response from an
// earlier submission can still overwrite the displayed result.
var submissionMachine = sync.OnceValues(buildSubmissionMachine)

func buildSubmissionMachine() (*statekit.MachineConfig[struct{}], error) {
	builder := statekit.NewMachine[struct{}]("submission").
		WithInitial(StateIdle)

	builder.State(StateIdle).
		On(EventSubmit).Target(StatePending).
		Done()

	builder.State(StatePending).
		On(EventSubmit).Target(StatePending).
		On(EventResolve).Target(StateSucceeded).
		On(EventReject).Target(StateFailed).
		Done()

	builder.State(StateSucceeded).
		On(EventSubmit).Target(StatePending).
		On(EventResolve).Target(StateSucceeded).
		On(EventReject).Target(StateFailed).
		Done()

	builder.State(StateFailed).
		On(EventSubmit).Target(StatePending).
		On(EventResolve).Target(StateSucceeded).
		On(EventReject).Target(StateFailed).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build submission machine: %w", err)
	}
	return machine, nil
}

// transitionFor returns the target phase of event in phase p, or nil.
func transitionFor(machine *statekit.MachineConfig[struct{}], p Phase, event string) *Phase {
	state := machine.GetState(statekit.StateID(p))
	if state == nil {
		return nil
	}
	t := state.FindTransition(statekit.EventType(event))
	if t == nil {
		return nil
	}
	target := Phase(t.Target)
	return &target
}

// phaseMachine drives Phase through a statekit interpreter.
type phaseMachine struct {
	machine     *statekit.MachineConfig[struct{}]
	interpreter *statekit.Interpreter[struct{}]
}

func newPhaseMachine() (*phaseMachine, error) {
	machine, err := submissionMachine()
	if err != nil {
		return nil, err
	}
	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &phaseMachine{machine: machine, interpreter: interpreter}, nil
}

func (m *phaseMachine) Current() Phase {
	return Phase(m.interpreter.State().Value)
}

// Fire sends event and returns the resulting phase. Self-transitions leave
// the phase unchanged, so acceptance is read from the machine definition
// rather than from a phase change.
func (m *phaseMachine) Fire(event string) (Phase, error) {
	before := m.Current()
	want := transitionFor(m.machine, before, event)
	if want == nil {
		return before, fmt.Errorf("event %q is not allowed in phase %q", event, before)
	}
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if after := m.Current(); after != *want {
		return after, fmt.Errorf("event %q moved %q to %q, want %q", event, before, after, *want)
	}
	return *want, nil
}
