package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a permitted transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachine tracks the stage of a single ticket and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger has at least one transition from the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the first transition whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers configured for the current state
	PermittedTriggers() []Trigger

	// History returns the transitions taken since the machine was built
	History() []Transition
}

// StateMachineBuilder collects transitions and produces machines sharing them
type StateMachineBuilder interface {
	Configure(state State) StateConfiguration
	Build(initialState State) StateMachine
}

// StateConfiguration declares the transitions leaving one state
type StateConfiguration interface {
	Permit(trigger Trigger, toState State) StateConfiguration
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

// Transition is a taken state change
type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

type edge struct {
	to    State
	guard GuardFunc
}

type edges map[Trigger][]edge

type builder struct {
	table map[State]edges
}

type stateConfig struct {
	from  State
	table map[State]edges
}

type machine struct {
	current State
	table   map[State]edges
	history []Transition
}

// NewBuilder creates an empty state machine builder
func NewBuilder() StateMachineBuilder {
	return &builder{table: make(map[State]edges)}
}

func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(edges)
	}
	return &stateConfig{from: state, table: b.table}
}

// Build snapshots the configured transitions; later Configure calls do not affect built machines.
func (b *builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	snapshot := make(map[State]edges, len(b.table))
	for state, out := range b.table {
		copied := make(edges, len(out))
		for trigger, list := range out {
			copied[trigger] = append([]edge(nil), list...)
		}
		snapshot[state] = copied
	}

	return &machine{current: initialState, table: snapshot}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.table[c.from][trigger] = append(c.table[c.from][trigger], edge{to: toState, guard: guard})
	return c
}

func (m *machine) State() State {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.table[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, e := range candidates {
		if e.guard != nil && !e.guard(ctx) {
			continue
		}
		m.history = append(m.history, Transition{From: m.current, To: e.to, Trigger: trigger})
		m.current = e.to
		return nil
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	out := make([]Trigger, 0, len(m.table[m.current]))
	for trigger := range m.table[m.current] {
		out = append(out, trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *machine) History() []Transition {
	return append([]Transition(nil), m.history...)
}
