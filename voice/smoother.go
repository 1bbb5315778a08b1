// Package voice implements the polyphonic wavetable oscillator's voice
// cluster: parameter smoothing, per-voice parameter derivation, and the
// lane-swap voice-state migration a StackVoiceManager uses to keep
// active voices packed into the front of each cluster.
package voice

import "github.com/sigflow/polygraph/vec"

// Smoother is the common interface of LinearSmoother and LogSmoother:
// set a new target, advance it by some number of samples, and read the
// current value. They interpolate differently (linear in the value, or
// linear in the log of the value), which matters for parameters like
// frequency where a linear glide sounds wrong. GenericSmoother, a
// one-pole exponential smoother, does not satisfy Smoother: it has a
// mask-based SetTarget and is advanced with SmoothExp.
type Smoother interface {
	SetTarget(target, t vec.F)
	SetTargetRecip(target, tRecip vec.F)
	SetInstantly(target vec.F, mask vec.Mask)
	SetAllInstantly(target vec.F)
	Tick(dt vec.F)
	Tick1()
	Current() vec.F
}

// LinearSmoother interpolates linearly in the value itself: each tick
// adds a fixed increment. Appropriate for parameters like pan or level
// where a straight ramp is the natural shape.
type LinearSmoother struct {
	Increment vec.F
	Value     vec.F
}

// NewLinearSmoother returns a smoother already at rest at v.
func NewLinearSmoother(v vec.F) *LinearSmoother {
	return &LinearSmoother{Value: v}
}

// Scale multiplies both the current value and the in-flight increment by
// scale, used when a parameter's unit changes (e.g. frame index range
// changing with a different wavetable).
func (s *LinearSmoother) Scale(scale vec.F) {
	s.Value = s.Value.Mul(scale)
	s.Increment = s.Increment.Mul(scale)
}

func (s *LinearSmoother) SetTarget(target, t vec.F) {
	s.Increment = target.Sub(s.Value).Div(t)
}

func (s *LinearSmoother) SetTargetRecip(target, tRecip vec.F) {
	s.Increment = target.Sub(s.Value).Mul(tRecip)
}

func (s *LinearSmoother) SetInstantly(target vec.F, mask vec.Mask) {
	s.Increment = vec.Select(mask, vec.F{}, s.Increment)
	s.Value = vec.Select(mask, target, s.Value)
}

func (s *LinearSmoother) SetAllInstantly(target vec.F) {
	s.Increment = vec.F{}
	s.Value = target
}

func (s *LinearSmoother) Tick(t vec.F) {
	s.Value = s.Increment.Mul(t).Add(s.Value)
}

func (s *LinearSmoother) Tick1() {
	s.Value = s.Value.Add(s.Increment)
}

func (s *LinearSmoother) Current() vec.F { return s.Value }

// LogSmoother interpolates linearly in log2 of the value: each tick
// multiplies by a fixed factor, giving an exponential approach that
// sounds linear for frequencies and ratios (a fixed glide time feels the
// same whether transposing up or down an octave).
type LogSmoother struct {
	Factor vec.F
	Value  vec.F
}

// NewLogSmoother returns a smoother already at rest at v. v must be
// strictly positive (log-domain parameters are always ratios or Hz).
func NewLogSmoother(v vec.F) *LogSmoother {
	if v == (vec.F{}) {
		v = vec.Splat(1)
	}
	return &LogSmoother{Factor: vec.Splat(1), Value: v}
}

func (s *LogSmoother) Scale(scale vec.F) {
	s.Value = s.Value.Mul(scale)
}

func (s *LogSmoother) SetTarget(target, t vec.F) {
	s.Factor = vec.Exp2(vec.Log2(target.Div(s.Value)).Div(t))
}

func (s *LogSmoother) SetTargetRecip(target, tRecip vec.F) {
	s.Factor = vec.Pow(target.Div(s.Value), tRecip)
}

func (s *LogSmoother) SetInstantly(target vec.F, mask vec.Mask) {
	s.Factor = vec.Select(mask, vec.Splat(1), s.Factor)
	s.Value = vec.Select(mask, target, s.Value)
}

func (s *LogSmoother) SetAllInstantly(target vec.F) {
	s.Value = target
	s.Factor = vec.Splat(1)
}

func (s *LogSmoother) Tick(dt vec.F) {
	s.Value = s.Value.Mul(vec.Pow(s.Factor, dt))
}

func (s *LogSmoother) Tick1() {
	s.Value = s.Value.Mul(s.Factor)
}

func (s *LogSmoother) Current() vec.F { return s.Value }

// GenericSmoother is a one-pole exponential smoother driven by an
// explicit per-tick alpha rather than a precomputed factor, used when
// the smoothing coefficient itself depends on the sample rate or a
// filter cutoff rather than a fixed glide duration.
type GenericSmoother struct {
	Current_ vec.F
	Target   vec.F
}

// NewGenericSmoother returns a smoother already at rest at v.
func NewGenericSmoother(v vec.F) *GenericSmoother {
	return &GenericSmoother{Current_: v, Target: v}
}

// SmoothExp advances Current one step towards Target with pole alpha:
// current' = alpha*(current-target) + target.
func (s *GenericSmoother) SmoothExp(alpha vec.F) {
	s.Current_ = alpha.MulAdd(s.Current_.Sub(s.Target), s.Target)
}

func (s *GenericSmoother) SetInstantly(target vec.F, mask vec.Mask) {
	s.Target = vec.Select(mask, target, s.Target)
	s.Current_ = vec.Select(mask, target, s.Current_)
}

func (s *GenericSmoother) SetTarget(target vec.F, mask vec.Mask) {
	s.Target = vec.Select(mask, target, s.Target)
}

func (s *GenericSmoother) Current() vec.F { return s.Current_ }

// TickN advances any Smoother n times with a constant per-tick dt,
// returning the value after each tick. Block processing does not use it:
// cluster parameters are advanced a whole block at once by
// ClusterParams.TickN.
func TickN(s Smoother, n int, dt vec.F) []vec.F {
	out := make([]vec.F, n)
	for i := 0; i < n; i++ {
		s.Tick(dt)
		out[i] = s.Current()
	}
	return out
}
