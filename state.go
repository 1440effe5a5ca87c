package qturing

import (
	"fmt"
	"strings"
)

// Symbol is a single tape cell.
type Symbol rune

/*
Configuration is one branch of the machine: the tape contents, the head
position and the internal state. Configurations are plain values, so two of
them are equal when all three fields are equal, which makes them usable as
keys of the register.

The tape is stored as a string of symbols and indexed per symbol, never per
byte.
*/
type Configuration struct {
	Tape  string
	Head  int
	State string
}

// NewConfiguration builds a configuration from an explicit symbol slice.
func NewConfiguration(tape []Symbol, head int, state string) Configuration {
	return Configuration{
		Tape:  symbolsToTape(tape),
		Head:  head,
		State: state,
	}
}

// Symbols returns a fresh copy of the tape.
func (c Configuration) Symbols() []Symbol {
	runes := []rune(c.Tape)
	symbols := make([]Symbol, len(runes))

	for i, r := range runes {
		symbols[i] = Symbol(r)
	}

	return symbols
}

// Len is the tape length in symbols.
func (c Configuration) Len() int {
	return len([]rune(c.Tape))
}

// InBounds reports whether the head points at a tape cell.
func (c Configuration) InBounds() bool {
	return c.Head >= 0 && c.Head < c.Len()
}

// Read returns the symbol under the head, false when the head is off the tape.
func (c Configuration) Read() (Symbol, bool) {
	runes := []rune(c.Tape)
	if c.Head < 0 || c.Head >= len(runes) {
		return 0, false
	}

	return Symbol(runes[c.Head]), true
}

func (c Configuration) String() string {
	return fmt.Sprintf("(%s, %d, %s)", c.Tape, c.Head, c.State)
}

// less is the canonical ordering used to break ties between configurations.
func (c Configuration) less(other Configuration) bool {
	if c.Tape != other.Tape {
		return c.Tape < other.Tape
	}

	if c.Head != other.Head {
		return c.Head < other.Head
	}

	return c.State < other.State
}

func symbolsToTape(symbols []Symbol) string {
	var builder strings.Builder

	for _, s := range symbols {
		builder.WriteRune(rune(s))
	}

	return builder.String()
}
