package qturing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is returned for machine files that cannot be used.
var ErrInvalidDefinition = errors.New("qturing: invalid machine definition")

//go:embed machines/reference.yaml
var referenceDefinition []byte

/*
Rule is one transition as written in a machine file. Read and Write hold a
single symbol. Phase is optional; rules without one receive the default
phase chosen by the caller of Definition.Actions.
*/
type Rule struct {
	State string `yaml:"state"`
	Read  string `yaml:"read"`
	Next  string `yaml:"next"`
	Write string `yaml:"write"`
	Move  string `yaml:"move"`
	Phase *Phase `yaml:"phase,omitempty"`
}

// Phase is the YAML form of a complex phase factor.
type Phase struct {
	Re float64 `yaml:"re"`
	Im float64 `yaml:"im"`
}

// Complex converts the phase for use in an Action.
func (p Phase) Complex() complex128 {
	return complex(p.Re, p.Im)
}

/*
Definition describes a complete machine: rules, initial state, accept
states and an optional alphabet.
*/
type Definition struct {
	Name     string   `yaml:"name"`
	Initial  string   `yaml:"initial"`
	Accept   []string `yaml:"accept"`
	Alphabet string   `yaml:"alphabet,omitempty"`
	Rules    []Rule   `yaml:"rules"`
}

// ParseDefinition decodes a YAML machine definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	if def.Initial == "" {
		return nil, fmt.Errorf("%w: missing initial state", ErrInvalidDefinition)
	}

	if len(def.Accept) == 0 {
		return nil, fmt.Errorf("%w: no accept states", ErrInvalidDefinition)
	}

	return &def, nil
}

// LoadDefinition reads and decodes a machine file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine definition: %w", err)
	}

	return ParseDefinition(data)
}

// ReferenceDefinition returns the machine bundled with the module.
func ReferenceDefinition() *Definition {
	def, err := ParseDefinition(referenceDefinition)
	if err != nil {
		panic(err)
	}

	return def
}

/*
Actions groups the rules by (state, read symbol), keeping file order, and
attaches defaultPhase to every rule without an explicit phase.
*/
func (d *Definition) Actions(defaultPhase complex128) (map[Key][]Action, error) {
	actions := make(map[Key][]Action)

	for i, rule := range d.Rules {
		read, err := singleSymbol(rule.Read)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d read: %v", ErrInvalidTransitionTable, i, err)
		}

		write, err := singleSymbol(rule.Write)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d write: %v", ErrInvalidTransitionTable, i, err)
		}

		move, err := ParseDirection(rule.Move)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		phase := defaultPhase
		if rule.Phase != nil {
			phase = rule.Phase.Complex()
		}

		key := Key{State: rule.State, Symbol: read}
		actions[key] = append(actions[key], Action{
			Next:  rule.Next,
			Write: write,
			Move:  move,
			Phase: phase,
		})
	}

	return actions, nil
}

// Table builds the validated transition table with a default phase of 1.
func (d *Definition) Table() (*TransitionTable, error) {
	actions, err := d.Actions(1)
	if err != nil {
		return nil, err
	}

	var opts []TableOption
	if d.Alphabet != "" {
		alphabet := make([]Symbol, 0, len(d.Alphabet))
		for _, r := range d.Alphabet {
			alphabet = append(alphabet, Symbol(r))
		}

		opts = append(opts, WithAlphabet(alphabet...))
	}

	return NewTransitionTable(actions, opts...)
}

// Machine builds a machine for the given input tape.
func (d *Definition) Machine(input string, opts ...MachineOption) (*Machine, error) {
	table, err := d.Table()
	if err != nil {
		return nil, err
	}

	return NewMachine(table, d.Initial, input, d.Accept, opts...), nil
}

func singleSymbol(raw string) (Symbol, error) {
	runes := []rune(raw)
	if len(runes) != 1 {
		return 0, fmt.Errorf("expected exactly one symbol, got %q", raw)
	}

	return Symbol(runes[0]), nil
}
