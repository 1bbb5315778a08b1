// Package dsp implements the cluster-wide (vec.F-lane) filter primitives
// the oscillator's output passes through: a trapezoidal integrator and
// the one-pole and state-variable topologies built on top of it.
package dsp

import "github.com/sigflow/polygraph/vec"

// Integrator is a single trapezoidal (TPT) integrator stage, the
// zero-delay-feedback building block both OnePole and SVF embed. Call
// State() to read the value needed to compute this step's input, then
// Process that input, then Output() to read this step's result.
type Integrator struct {
	s vec.F // accumulated state, read by callers to form this step's v
	y vec.F // last output produced by Process
}

// Reset clears the integrator to silence.
func (i *Integrator) Reset() { *i = Integrator{} }

// State returns the integrator's state going into the next Process
// call (the value a one-pole/SVF topology subtracts the input from to
// derive that step's scaled delta).
func (i *Integrator) State() vec.F { return i.s }

// Output returns the result of the most recent Process call.
func (i *Integrator) Output() vec.F { return i.y }

// Process advances the integrator by one sample given v, the already
// g-scaled input delta for this step.
func (i *Integrator) Process(v vec.F) {
	y := v.Add(i.s)
	i.y = y
	i.s = y.Add(v)
}
