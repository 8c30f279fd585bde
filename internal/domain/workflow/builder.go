package workflow

import (
	"context"
	"fmt"
)

// Builder assembles a Machine from per-state transition configurations.
type Builder interface {
	// Configure returns the transition configuration for a state, creating
	// it on first use.
	Configure(state State) StateConfig

	// Build creates an independent machine starting at initialState.
	Build(initialState State) Machine
}

// StateConfig configures outgoing transitions for one state.
type StateConfig interface {
	// Permit allows trigger to move to target unconditionally.
	Permit(trigger Trigger, target State) StateConfig

	// PermitIf allows trigger to move to target when guard passes. Multiple
	// PermitIf calls for the same trigger are tried in registration order.
	PermitIf(trigger Trigger, target State, guard GuardFunc) StateConfig
}

type transition struct {
	target State
	guard  GuardFunc
}

type stateConfig struct {
	from        State
	transitions map[Trigger][]transition
}

type builder struct {
	configs map[State]*stateConfig
}

// NewBuilder creates an empty machine builder.
func NewBuilder() Builder {
	return &builder{configs: make(map[State]*stateConfig)}
}

func (b *builder) Configure(state State) StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("workflow: configuring unknown state %q", state))
	}
	cfg, ok := b.configs[state]
	if !ok {
		cfg = &stateConfig{
			from:        state,
			transitions: make(map[Trigger][]transition),
		}
		b.configs[state] = cfg
	}
	return cfg
}

// Build copies the accumulated configuration so machines built from the same
// builder do not share mutable state.
func (b *builder) Build(initialState State) Machine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("workflow: building machine with unknown state %q", initialState))
	}

	configs := make(map[State]*stateConfig, len(b.configs))
	for state, cfg := range b.configs {
		copied := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			copied[trigger] = append([]transition(nil), ts...)
		}
		configs[state] = &stateConfig{from: state, transitions: copied}
	}

	return &machine{current: initialState, configs: configs}
}

func (c *stateConfig) Permit(trigger Trigger, target State) StateConfig {
	return c.PermitIf(trigger, target, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, target State, guard GuardFunc) StateConfig {
	if !target.IsValid() {
		panic(fmt.Sprintf("workflow: transition to unknown state %q", target))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{target: target, guard: guard})
	return c
}

type machine struct {
	current State
	configs map[State]*stateConfig
}

func (m *machine) State() State {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.configs[m.current]
	if !ok || len(cfg.transitions[trigger]) == 0 {
		return fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range cfg.transitions[trigger] {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.target
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.configs[m.current]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
