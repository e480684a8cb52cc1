package query

import "math"

// Aggregation is one typed fold result within a Row.
type Aggregation struct {
	Kind  Aggregator
	Value float64
}

// aggState is the running state for one aggregator within one bucket.
type aggState struct {
	kind  Aggregator
	count int64
	sum   float64
	min   float64
	max   float64
}

func newAggState(kind Aggregator) aggState {
	return aggState{kind: kind, min: math.Inf(1), max: math.Inf(-1)}
}

func (s *aggState) fold(v float64) {
	switch s.kind {
	case Mean:
		s.count++
		s.sum += v
	case Min:
		if v < s.min {
			s.min = v
		}
	case Max:
		if v > s.max {
			s.max = v
		}
	}
}

// complete emits the aggregator's current value and resets its state
// so the same folder can be reused for the next bucket.
func (s *aggState) complete() Aggregation {
	var out Aggregation
	switch s.kind {
	case Mean:
		out = Aggregation{Kind: Mean, Value: s.sum / float64(s.count)}
	case Min:
		out = Aggregation{Kind: Min, Value: s.min}
	case Max:
		out = Aggregation{Kind: Max, Value: s.max}
	}
	*s = newAggState(s.kind)
	return out
}

// AggregatorsFolder holds one state per requested aggregator and folds
// every entry's value into each of them in parallel.
type AggregatorsFolder struct {
	states []aggState
}

// NewAggregatorsFolder builds a folder for the given aggregator kinds,
// in the order requested.
func NewAggregatorsFolder(aggregators []Aggregator) *AggregatorsFolder {
	states := make([]aggState, len(aggregators))
	for i, a := range aggregators {
		states[i] = newAggState(a)
	}
	return &AggregatorsFolder{states: states}
}

// Fold folds one value into every aggregator's running state.
func (f *AggregatorsFolder) Fold(v float64) {
	for i := range f.states {
		f.states[i].fold(v)
	}
}

// Complete emits one Aggregation per aggregator, in request order, and
// resets every aggregator's state for the next bucket.
func (f *AggregatorsFolder) Complete() []Aggregation {
	out := make([]Aggregation, len(f.states))
	for i := range f.states {
		out[i] = f.states[i].complete()
	}
	return out
}
