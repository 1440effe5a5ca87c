package qturing

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sort"
	"time"
)

// ErrEmptyRegister is returned when a measurement finds no configurations.
var ErrEmptyRegister = errors.New("qturing: register holds no configurations")

/*
Register is the sparse state vector of the machine. It maps every live
configuration to its complex amplitude; configurations absent from the map
carry an implicit amplitude of zero.

A Register is not safe for concurrent use. It draws all of its randomness
(measurement, decoherence) from the injected source, and walks its entries
in insertion order, so a seeded run replays bit for bit.
*/
type Register struct {
	amplitudes map[Configuration]complex128
	order      []Configuration
	rng        *rand.Rand
}

/*
Edge addresses one coefficient of a sparse operator: the amplitude of From
contributes to To.
*/
type Edge struct {
	From Configuration
	To   Configuration
}

// Unitary is a sparse operator, new[To] += old[From] * coefficient.
type Unitary map[Edge]complex128

// Entry is a configuration together with its amplitude and Born probability.
type Entry struct {
	Configuration Configuration
	Amplitude     complex128
	Probability   float64
}

// NewRegister returns an empty register. A nil source is replaced by a
// time-seeded one.
func NewRegister(rng *rand.Rand) *Register {
	if rng == nil {
		rng = newRand()
	}

	return &Register{
		amplitudes: make(map[Configuration]complex128),
		rng:        rng,
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
}

// Set overwrites the amplitude of one configuration. Normalization is the
// caller's business.
func (r *Register) Set(config Configuration, amplitude complex128) {
	r.track(config)
	r.amplitudes[config] = amplitude
}

// Add accumulates into the amplitude of a configuration.
func (r *Register) Add(config Configuration, amplitude complex128) {
	r.track(config)
	r.amplitudes[config] += amplitude
}

func (r *Register) track(config Configuration) {
	if _, ok := r.amplitudes[config]; !ok {
		r.order = append(r.order, config)
	}
}

// Amplitude returns the stored amplitude, zero for absent configurations.
func (r *Register) Amplitude(config Configuration) complex128 {
	return r.amplitudes[config]
}

// Contains reports whether the configuration is stored in the register.
func (r *Register) Contains(config Configuration) bool {
	_, ok := r.amplitudes[config]
	return ok
}

// Len is the number of stored configurations.
func (r *Register) Len() int {
	return len(r.amplitudes)
}

// Probability is |amplitude|² of a single configuration.
func (r *Register) Probability(config Configuration) float64 {
	return probability(r.amplitudes[config])
}

// TotalProbability is Σ|amplitude|² over the register.
func (r *Register) TotalProbability() float64 {
	total := 0.0
	for _, config := range r.order {
		total += probability(r.amplitudes[config])
	}

	return total
}

// Norm is the Euclidean norm of the state vector.
func (r *Register) Norm() float64 {
	return math.Sqrt(r.TotalProbability())
}

/*
Normalize scales every amplitude so the probabilities sum to one. A register
that is empty or all zero is left untouched.
*/
func (r *Register) Normalize() {
	norm := r.Norm()
	if norm == 0 {
		return
	}

	divisor := complex(norm, 0)
	for _, config := range r.order {
		r.amplitudes[config] /= divisor
	}
}

/*
Entries lists the register in descending order of probability. Ties are
broken by tape, then head, then state, so the order is reproducible.
*/
func (r *Register) Entries() []Entry {
	entries := make([]Entry, 0, len(r.order))

	for _, config := range r.order {
		amplitude := r.amplitudes[config]
		entries = append(entries, Entry{
			Configuration: config,
			Amplitude:     amplitude,
			Probability:   probability(amplitude),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Probability != entries[j].Probability {
			return entries[i].Probability > entries[j].Probability
		}

		return entries[i].Configuration.less(entries[j].Configuration)
	})

	return entries
}

// Configurations returns the stored configurations in Entries order.
func (r *Register) Configurations() []Configuration {
	entries := r.Entries()
	configs := make([]Configuration, len(entries))

	for i, entry := range entries {
		configs[i] = entry.Configuration
	}

	return configs
}

/*
Measure samples a configuration according to the Born rule. The walk runs
in descending probability order and stops once the running sum reaches the
drawn threshold. If float rounding keeps the sum below the threshold, a
configuration is picked uniformly instead.

The register itself is not collapsed.
*/
func (r *Register) Measure() (Configuration, error) {
	if len(r.amplitudes) == 0 {
		return Configuration{}, ErrEmptyRegister
	}

	entries := r.Entries()

	total := 0.0
	for _, entry := range entries {
		total += entry.Probability
	}

	threshold := r.rng.Float64() * total

	cumulative := 0.0
	for _, entry := range entries {
		cumulative += entry.Probability
		if cumulative >= threshold {
			return entry.Configuration, nil
		}
	}

	return entries[r.rng.IntN(len(entries))].Configuration, nil
}

/*
ApplyUnitary replaces the register with U applied to it and renormalizes.
Entries whose source is absent or zero contribute nothing. Edges are folded
in canonical order so the result does not depend on map iteration.
*/
func (r *Register) ApplyUnitary(u Unitary) {
	edges := make([]Edge, 0, len(u))
	for edge := range u {
		edges = append(edges, edge)
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From.less(edges[j].From)
		}

		return edges[i].To.less(edges[j].To)
	})

	next := NewRegister(r.rng)
	for _, edge := range edges {
		amplitude, ok := r.amplitudes[edge.From]
		if !ok || amplitude == 0 {
			continue
		}

		next.Add(edge.To, amplitude*u[edge])
	}

	r.amplitudes = next.amplitudes
	r.order = next.order
	r.Normalize()
}

// Snapshot copies the amplitude map.
func (r *Register) Snapshot() map[Configuration]complex128 {
	snapshot := make(map[Configuration]complex128, len(r.amplitudes))
	for config, amplitude := range r.amplitudes {
		snapshot[config] = amplitude
	}

	return snapshot
}

// prune drops configurations whose amplitude cancelled out exactly.
func (r *Register) prune() {
	kept := r.order[:0]

	for _, config := range r.order {
		if r.amplitudes[config] == 0 {
			delete(r.amplitudes, config)
			continue
		}

		kept = append(kept, config)
	}

	r.order = kept
}

func probability(amplitude complex128) float64 {
	magnitude := cmplx.Abs(amplitude)
	return magnitude * magnitude
}
