package monitor

import "time"

// Bands is a warning/critical threshold pair for one metric. A value equal
// to a boundary belongs to the higher band.
type Bands struct {
	Warning  float64
	Critical float64
}

// Classify maps a percentage onto a band.
func (b Bands) Classify(value float64) Level {
	switch {
	case value >= b.Critical:
		return LevelCritical
	case value >= b.Warning:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Policy holds the bands for both metrics.
type Policy struct {
	CPU    Bands
	Memory Bands
}

// DefaultPolicy returns the standard thresholds. Memory bands sit just below
// the points where FortiOS enters conserve mode.
func DefaultPolicy() Policy {
	return Policy{
		CPU:    Bands{Warning: 80, Critical: 90},
		Memory: Bands{Warning: 79, Critical: 88},
	}
}

// Evaluate classifies a sample and compares it with the previous state.
// A metric whose previous level is LevelUnknown is being classified for the
// first time and produces no transition. Evaluating the same sample twice
// yields no transitions the second time.
func Evaluate(cpu, memory float64, prev ThresholdState, p Policy, at time.Time) (ThresholdState, []Transition) {
	next := ThresholdState{
		CPU:            p.CPU.Classify(cpu),
		Memory:         p.Memory.Classify(memory),
		LastTransition: prev.LastTransition,
	}

	var transitions []Transition
	if prev.CPU != LevelUnknown && prev.CPU != next.CPU {
		transitions = append(transitions, Transition{Metric: MetricCPU, From: prev.CPU, To: next.CPU, Value: cpu, At: at})
	}
	if prev.Memory != LevelUnknown && prev.Memory != next.Memory {
		transitions = append(transitions, Transition{Metric: MetricMemory, From: prev.Memory, To: next.Memory, Value: memory, At: at})
	}

	if len(transitions) > 0 {
		next.LastTransition = at
	}
	return next, transitions
}
