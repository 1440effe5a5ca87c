package qturing

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidTransitionTable is returned when a table fails validation.
var ErrInvalidTransitionTable = errors.New("qturing: invalid transition table")

// phaseTolerance bounds how far a phase may drift from the unit circle.
const phaseTolerance = 1e-9

// Direction moves the head one cell.
type Direction int8

const (
	Backward Direction = -1
	Forward  Direction = 1
)

/*
ParseDirection accepts the notations found in machine definitions: R, D,
> and "forward" move right; L, E, < and "backward" move left. Case is
ignored.
*/
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "r", "d", ">", "right", "forward":
		return Forward, nil
	case "l", "e", "<", "left", "backward":
		return Backward, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidTransitionTable, raw)
	}
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "R"
	case Backward:
		return "L"
	default:
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
}

// Key selects the actions available to a configuration.
type Key struct {
	State  string
	Symbol Symbol
}

/*
Action is one branch a configuration may take: switch to Next, write Write
under the head, move the head by Move and multiply the amplitude by Phase.
*/
type Action struct {
	Next  string     `validate:"required"`
	Write Symbol     `validate:"required"`
	Move  Direction  `validate:"oneof=-1 1"`
	Phase complex128 `validate:"unitphase"`
}

/*
TransitionTable is the static rule set of the machine. It is validated once
at construction and never mutated afterwards. A missing key means the
configuration has no legal move.
*/
type TransitionTable struct {
	actions  map[Key][]Action
	alphabet map[Symbol]struct{}
}

type tableOptions struct {
	alphabet []Symbol
}

// TableOption configures NewTransitionTable.
type TableOption func(*tableOptions)

/*
WithAlphabet restricts the symbols that rules may read or write. Without it
any symbol is accepted.
*/
func WithAlphabet(symbols ...Symbol) TableOption {
	return func(o *tableOptions) {
		o.alphabet = append(o.alphabet, symbols...)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	if err := v.RegisterValidation("unitphase", func(fl validator.FieldLevel) bool {
		return math.Abs(cmplx.Abs(fl.Field().Complex())-1) <= phaseTolerance
	}); err != nil {
		panic(err)
	}

	return v
}

/*
NewTransitionTable validates and copies the rules. Every action needs a next
state, a write symbol, a direction of ±1 and a phase on the unit circle.
When an alphabet is given, read and written symbols must belong to it.
*/
func NewTransitionTable(rules map[Key][]Action, opts ...TableOption) (*TransitionTable, error) {
	options := tableOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	table := &TransitionTable{
		actions: make(map[Key][]Action, len(rules)),
	}

	if len(options.alphabet) > 0 {
		table.alphabet = make(map[Symbol]struct{}, len(options.alphabet))
		for _, symbol := range options.alphabet {
			table.alphabet[symbol] = struct{}{}
		}
	}

	for key, actions := range rules {
		if key.State == "" {
			return nil, fmt.Errorf("%w: rule with empty state", ErrInvalidTransitionTable)
		}

		if !table.inAlphabet(key.Symbol) {
			return nil, fmt.Errorf(
				"%w: (%s, %q) reads a symbol outside the alphabet",
				ErrInvalidTransitionTable, key.State, key.Symbol,
			)
		}

		for i, action := range actions {
			if err := validate.Struct(action); err != nil {
				return nil, fmt.Errorf(
					"%w: (%s, %q) action %d: %v",
					ErrInvalidTransitionTable, key.State, key.Symbol, i, err,
				)
			}

			if !table.inAlphabet(action.Write) {
				return nil, fmt.Errorf(
					"%w: (%s, %q) action %d writes %q outside the alphabet",
					ErrInvalidTransitionTable, key.State, key.Symbol, i, action.Write,
				)
			}
		}

		if len(actions) > 0 {
			table.actions[key] = append([]Action(nil), actions...)
		}
	}

	return table, nil
}

func (t *TransitionTable) inAlphabet(symbol Symbol) bool {
	if t.alphabet == nil {
		return true
	}

	_, ok := t.alphabet[symbol]
	return ok
}

// Actions returns a copy of the actions for (state, symbol).
func (t *TransitionTable) Actions(state string, symbol Symbol) []Action {
	actions := t.actions[Key{State: state, Symbol: symbol}]
	if len(actions) == 0 {
		return nil
	}

	return append([]Action(nil), actions...)
}

// Len is the number of (state, symbol) keys with at least one action.
func (t *TransitionTable) Len() int {
	return len(t.actions)
}

// Keys lists the table keys ordered by state then symbol.
func (t *TransitionTable) Keys() []Key {
	keys := make([]Key, 0, len(t.actions))
	for key := range t.actions {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].State != keys[j].State {
			return keys[i].State < keys[j].State
		}

		return keys[i].Symbol < keys[j].Symbol
	})

	return keys
}
