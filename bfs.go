package qturing

import (
	"fmt"
	"math"
)

/*
BFSResult is the outcome of AmplifiedBFS: the configuration with the largest
amplitude magnitude after the final layer, that amplitude, and one path of
configurations leading to it from the initial configuration.
*/
type BFSResult struct {
	Best      Configuration
	Amplitude float64
	Path      []Configuration
	Layers    int
}

// layer is a frontier of real amplitudes kept in insertion order.
type layer struct {
	order      []Configuration
	amplitudes map[Configuration]float64
}

func newLayer() *layer {
	return &layer{amplitudes: make(map[Configuration]float64)}
}

func (l *layer) add(config Configuration, amplitude float64) {
	if _, ok := l.amplitudes[config]; !ok {
		l.order = append(l.order, config)
	}

	l.amplitudes[config] += amplitude
}

func (l *layer) reflect() {
	if len(l.order) == 0 {
		return
	}

	sum := 0.0
	for _, config := range l.order {
		sum += l.amplitudes[config]
	}

	mean := sum / float64(len(l.order))
	for _, config := range l.order {
		l.amplitudes[config] = 2*mean - l.amplitudes[config]
	}
}

/*
AmplifiedBFS is the real-valued counterpart of Machine. It expands the
configuration graph one breadth-first layer per iteration with every branch
weighted equally, flips the sign of configurations in accept states before
expanding them, and reflects each new layer about its mean. No phases and
no normalization are involved.

Expansion stops early when a layer dies out; the last non-empty layer is
then reported.
*/
func AmplifiedBFS(
	table *TransitionTable,
	initialState string,
	input string,
	accept []string,
	iterations int,
) (*BFSResult, error) {
	if iterations < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSteps, iterations)
	}

	accepting := make(map[string]struct{}, len(accept))
	for _, state := range accept {
		accepting[state] = struct{}{}
	}

	start := Configuration{Tape: input, Head: 0, State: initialState}
	parents := map[Configuration]Configuration{}

	frontier := newLayer()
	frontier.add(start, 1)

	layers := 0
	for ; layers < iterations; layers++ {
		next := newLayer()

		for _, config := range frontier.order {
			amplitude := frontier.amplitudes[config]
			if _, ok := accepting[config.State]; ok {
				amplitude = -amplitude
			}

			symbol, ok := config.Read()
			if !ok {
				continue
			}

			symbols := config.Symbols()
			for _, action := range table.actions[Key{State: config.State, Symbol: symbol}] {
				head := config.Head + int(action.Move)
				if head < 0 || head >= len(symbols) {
					continue
				}

				tape := append([]Symbol(nil), symbols...)
				tape[config.Head] = action.Write
				child := NewConfiguration(tape, head, action.Next)

				if _, seen := parents[child]; !seen && child != start {
					parents[child] = config
				}

				next.add(child, amplitude)
			}
		}

		if len(next.order) == 0 {
			break
		}

		next.reflect()
		frontier = next
	}

	best := frontier.order[0]
	for _, config := range frontier.order[1:] {
		candidate := math.Abs(frontier.amplitudes[config])
		current := math.Abs(frontier.amplitudes[best])

		if candidate > current || (candidate == current && config.less(best)) {
			best = config
		}
	}

	return &BFSResult{
		Best:      best,
		Amplitude: frontier.amplitudes[best],
		Path:      tracePath(parents, start, best),
		Layers:    layers,
	}, nil
}

func tracePath(parents map[Configuration]Configuration, start, end Configuration) []Configuration {
	path := []Configuration{end}
	seen := map[Configuration]struct{}{end: {}}

	for current := end; current != start; {
		parent, ok := parents[current]
		if !ok {
			break
		}

		if _, loop := seen[parent]; loop {
			break
		}

		seen[parent] = struct{}{}
		path = append(path, parent)
		current = parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path
}
