package qturing

import (
	"fmt"
	"math/cmplx"
)

// OperatorKind tags the variant held by an Operator.
type OperatorKind uint8

const (
	OracleOperator OperatorKind = iota
	AcceptOracleOperator
	DiffusionOperator
	DecoherenceOperator
)

func (k OperatorKind) String() string {
	switch k {
	case OracleOperator:
		return "oracle"
	case AcceptOracleOperator:
		return "accept-oracle"
	case DiffusionOperator:
		return "diffusion"
	case DecoherenceOperator:
		return "decoherence"
	default:
		return fmt.Sprintf("operator(%d)", uint8(k))
	}
}

/*
Operator is an amplification step applied to a whole register. It is plain
data: the Kind selects the behaviour and only the fields that variant needs
are read.

  - Oracle flips the phase of Target.
  - AcceptOracle flips the phase of every configuration whose state is in States.
  - Diffusion reflects every amplitude about the mean.
  - Decoherence erases the phase of each configuration with Probability.
*/
type Operator struct {
	Kind        OperatorKind
	Target      Configuration
	States      []string
	Probability float64
}

// Oracle marks a single configuration.
func Oracle(target Configuration) Operator {
	return Operator{Kind: OracleOperator, Target: target}
}

// AcceptOracle marks every configuration sitting in one of the given states.
func AcceptOracle(states ...string) Operator {
	return Operator{Kind: AcceptOracleOperator, States: states}
}

// Diffusion reflects amplitudes about their mean.
func Diffusion() Operator {
	return Operator{Kind: DiffusionOperator}
}

// Decoherence erases phases with the given per-configuration probability.
func Decoherence(probability float64) Operator {
	return Operator{Kind: DecoherenceOperator, Probability: probability}
}

// Apply runs the operator against the register in place.
func (op Operator) Apply(r *Register) {
	switch op.Kind {
	case OracleOperator:
		applyOracle(r, op.Target)
	case AcceptOracleOperator:
		applyAcceptOracle(r, op.States)
	case DiffusionOperator:
		applyDiffusion(r)
	case DecoherenceOperator:
		applyDecoherence(r, op.Probability)
	}
}

func (op Operator) String() string {
	switch op.Kind {
	case OracleOperator:
		return fmt.Sprintf("oracle%s", op.Target)
	case AcceptOracleOperator:
		return fmt.Sprintf("accept-oracle%v", op.States)
	case DecoherenceOperator:
		return fmt.Sprintf("decoherence(%g)", op.Probability)
	default:
		return op.Kind.String()
	}
}

// applyOracle is a no-op when the target is not stored.
func applyOracle(r *Register, target Configuration) {
	if amplitude, ok := r.amplitudes[target]; ok {
		r.amplitudes[target] = -amplitude
	}
}

func applyAcceptOracle(r *Register, states []string) {
	marked := make(map[string]struct{}, len(states))
	for _, state := range states {
		marked[state] = struct{}{}
	}

	for config, amplitude := range r.amplitudes {
		if _, ok := marked[config.State]; ok {
			r.amplitudes[config] = -amplitude
		}
	}
}

/*
applyDiffusion replaces every amplitude a with 2*mean - a over the live set.
It does not renormalize.
*/
func applyDiffusion(r *Register) {
	n := len(r.amplitudes)
	if n == 0 {
		return
	}

	var sum complex128
	for _, config := range r.order {
		sum += r.amplitudes[config]
	}

	mean := sum / complex(float64(n), 0)
	for _, config := range r.order {
		r.amplitudes[config] = 2*mean - r.amplitudes[config]
	}
}

/*
applyDecoherence keeps the magnitude and drops the phase of each
configuration independently with the given probability, then renormalizes.
A probability of zero or less leaves the register and the random source
untouched.
*/
func applyDecoherence(r *Register, errorProbability float64) {
	if errorProbability <= 0 {
		return
	}

	for _, config := range r.order {
		if r.rng.Float64() < errorProbability {
			r.amplitudes[config] = complex(cmplx.Abs(r.amplitudes[config]), 0)
		}
	}

	r.Normalize()
}
