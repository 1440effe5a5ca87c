package qturing

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/theapemachine/errnie"
)

// ErrInvalidSteps is returned when Run is asked for a negative step count.
var ErrInvalidSteps = errors.New("qturing: step count must not be negative")

// Lifecycle is the observable phase of a machine run.
type Lifecycle uint8

const (
	// Seeded holds exactly the initial configurations.
	Seeded Lifecycle = iota
	// Evolving has taken at least one step.
	Evolving
	// Measured has produced an outcome; the register is kept as is.
	Measured
)

func (l Lifecycle) String() string {
	switch l {
	case Seeded:
		return "seeded"
	case Evolving:
		return "evolving"
	case Measured:
		return "measured"
	default:
		return fmt.Sprintf("lifecycle(%d)", uint8(l))
	}
}

/*
Machine evolves a register of configurations under a transition table.
Every step fans each live configuration out over its legal actions, splitting
the amplitude between them and multiplying by each action's phase.
Contributions that land on the same configuration are summed, so branches
interfere.

One Machine is one run, driven by a single caller. Reset brings it back to
the seeded register without touching the table.
*/
type Machine struct {
	table        *TransitionTable
	initialState string
	tapes        []string
	accept       map[string]struct{}
	register     *Register
	steps        int
	lifecycle    Lifecycle
	rng          *rand.Rand
	config       *Config
}

// MachineOption configures NewMachine.
type MachineOption func(*Machine)

// WithRand injects the random source used for measurement and decoherence.
func WithRand(rng *rand.Rand) MachineOption {
	return func(m *Machine) {
		m.rng = rng
	}
}

// WithSeed seeds a deterministic random source.
func WithSeed(seed uint64) MachineOption {
	return func(m *Machine) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithConfig overrides the default configuration.
func WithConfig(config *Config) MachineOption {
	return func(m *Machine) {
		if config != nil {
			m.config = config
		}
	}
}

/*
WithSuperposedTapes seeds the register with every given tape at equal
amplitude instead of the single input tape.
*/
func WithSuperposedTapes(tapes ...string) MachineOption {
	return func(m *Machine) {
		if len(tapes) > 0 {
			m.tapes = append([]string(nil), tapes...)
		}
	}
}

/*
NewMachine builds a machine over the table, seeded with the input tape at
head 0 in the initial state with amplitude 1.
*/
func NewMachine(
	table *TransitionTable,
	initialState string,
	input string,
	accept []string,
	opts ...MachineOption,
) *Machine {
	m := &Machine{
		table:        table,
		initialState: initialState,
		tapes:        []string{input},
		accept:       make(map[string]struct{}, len(accept)),
		config:       NewConfig(),
	}

	for _, state := range accept {
		m.accept[state] = struct{}{}
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.rng == nil {
		m.rng = newRand()
	}

	m.seed()

	errnie.Info(
		"NewMachine - initial %s, tapes %v, accept %v, rules %d",
		initialState,
		m.tapes,
		accept,
		table.Len(),
	)

	return m
}

func (m *Machine) seed() {
	m.register = NewRegister(m.rng)

	for _, tape := range m.tapes {
		m.register.Set(Configuration{Tape: tape, Head: 0, State: m.initialState}, 1)
	}

	m.register.Normalize()
	m.steps = 0
	m.lifecycle = Seeded
}

// Reset restores the seeded register and clears the step counter.
func (m *Machine) Reset() {
	m.seed()
	errnie.Info("Reset - machine reseeded with %d configurations", m.register.Len())
}

/*
Step advances every live configuration by one transition.

Configurations whose head is off the tape, or that have no action for the
symbol under the head, die. Each of the k actions receives amplitude/√k
times its phase; a branch whose head would leave the tape is discarded.
Contributions are accumulated, configurations that cancel to exactly zero
are dropped, and the result is renormalized. When decohere is set the
decoherence operator runs on the new register before the final
normalization.
*/
func (m *Machine) Step(decohere bool) {
	next := NewRegister(m.rng)

	for _, config := range m.register.order {
		amplitude := m.register.amplitudes[config]
		if amplitude == 0 {
			continue
		}

		symbols := config.Symbols()
		if config.Head < 0 || config.Head >= len(symbols) {
			continue
		}

		actions := m.table.actions[Key{State: config.State, Symbol: symbols[config.Head]}]
		if len(actions) == 0 {
			continue
		}

		split := amplitude / complex(math.Sqrt(float64(len(actions))), 0)

		for _, action := range actions {
			head := config.Head + int(action.Move)
			if head < 0 || head >= len(symbols) {
				continue
			}

			tape := append([]Symbol(nil), symbols...)
			tape[config.Head] = action.Write

			next.Add(NewConfiguration(tape, head, action.Next), split*action.Phase)
		}
	}

	next.prune()

	if decohere {
		Decoherence(m.config.DecoherenceProbability).Apply(next)
	}

	next.Normalize()

	m.register = next
	m.steps++
	m.lifecycle = Evolving

	if next.Len() == 0 {
		errnie.Info("Step - no live configurations after step %d", m.steps)
	}
}

type runOptions struct {
	oracle    *Operator
	diffusion bool
	decohere  bool
}

// RunOption configures Run.
type RunOption func(*runOptions)

// WithOracle applies the operator to the register before every step.
func WithOracle(op Operator) RunOption {
	return func(o *runOptions) {
		o.oracle = &op
	}
}

// WithDiffusion reflects about the mean before every step, after the oracle.
func WithDiffusion() RunOption {
	return func(o *runOptions) {
		o.diffusion = true
	}
}

// WithDecoherentSteps passes decohere=true to every step.
func WithDecoherentSteps() RunOption {
	return func(o *runOptions) {
		o.decohere = true
	}
}

/*
Run performs maxSteps iterations of oracle, diffusion and Step, then
measures. Amplification always acts on the register before the step's
fan-out. The error is ErrEmptyRegister when every branch died.
*/
func (m *Machine) Run(maxSteps int, opts ...RunOption) (Configuration, error) {
	if maxSteps < 0 {
		return Configuration{}, fmt.Errorf("%w: %d", ErrInvalidSteps, maxSteps)
	}

	options := runOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	for i := 0; i < maxSteps; i++ {
		if options.oracle != nil {
			options.oracle.Apply(m.register)
		}

		if options.diffusion {
			Diffusion().Apply(m.register)
		}

		m.Step(options.decohere)
	}

	return m.Measure()
}

// Measure samples a configuration from the current register.
func (m *Machine) Measure() (Configuration, error) {
	config, err := m.register.Measure()
	if err != nil {
		errnie.Info("Measure - step %d: %v", m.steps, err)
		return Configuration{}, err
	}

	m.lifecycle = Measured

	errnie.Info(
		"Measure - state %s, tape %s, head %d",
		config.State,
		config.Tape,
		config.Head,
	)

	return config, nil
}

// Register exposes the current register for inspection and snapshots.
func (m *Machine) Register() *Register {
	return m.register
}

// Steps is the number of steps taken since the last reset.
func (m *Machine) Steps() int {
	return m.steps
}

// Lifecycle reports the current phase of the run.
func (m *Machine) Lifecycle() Lifecycle {
	return m.lifecycle
}

// Table returns the transition table.
func (m *Machine) Table() *TransitionTable {
	return m.table
}

// InitialState returns the state every seeded configuration starts in.
func (m *Machine) InitialState() string {
	return m.initialState
}

// Tapes returns the seeded tape contents.
func (m *Machine) Tapes() []string {
	return append([]string(nil), m.tapes...)
}

// AcceptStates lists the accept states in sorted order.
func (m *Machine) AcceptStates() []string {
	states := make([]string, 0, len(m.accept))
	for state := range m.accept {
		states = append(states, state)
	}

	sort.Strings(states)
	return states
}

// IsAccepting reports whether state is an accept state.
func (m *Machine) IsAccepting(state string) bool {
	_, ok := m.accept[state]
	return ok
}

// Accepted reports whether any live configuration is in an accept state.
func (m *Machine) Accepted() bool {
	for _, config := range m.register.order {
		if m.IsAccepting(config.State) {
			return true
		}
	}

	return false
}

// AcceptProbability sums the probability of all accepting configurations.
func (m *Machine) AcceptProbability() float64 {
	total := 0.0

	for _, config := range m.register.order {
		if m.IsAccepting(config.State) {
			total += probability(m.register.amplitudes[config])
		}
	}

	return total
}
