package morph

import "github.com/chewxy/math32"

// AnimationMode selects the easing curve used when animating between weight vectors.
type AnimationMode int

const (
	// ModeLinear interpolates weights at a constant rate.
	ModeLinear AnimationMode = iota

	// ModeCubic eases in and out with a cubic (smoothstep) curve.
	ModeCubic

	// ModeSpring follows a damped spring response. Bounce controls overshoot.
	ModeSpring
)

// DefaultSpringBounce is the bounce used by Spring when none is given.
const DefaultSpringBounce = 0.2

// Animation describes how a morpher moves from its current weights to new target weights.
type Animation struct {
	// Duration is the animation length in seconds. Zero applies the target on the next update.
	Duration float32

	// Mode is the easing curve.
	Mode AnimationMode

	// Bounce is the spring overshoot in [0, 1). Only used by ModeSpring.
	Bounce float32
}

// Immediate applies target weights on the next update with no interpolation.
var Immediate = Animation{}

// Linear returns a constant-rate Animation lasting duration seconds.
func Linear(duration float32) Animation {
	return Animation{Duration: duration, Mode: ModeLinear}
}

// Cubic returns an ease-in-out Animation lasting duration seconds.
func Cubic(duration float32) Animation {
	return Animation{Duration: duration, Mode: ModeCubic}
}

// Spring returns a spring Animation settling over duration seconds with the given bounce.
func Spring(duration, bounce float32) Animation {
	return Animation{Duration: duration, Mode: ModeSpring, Bounce: bounce}
}

// Ease maps linear progress p in [0, 1] onto the animation's curve.
// Spring curves may overshoot 1 before settling.
//
// Parameters:
//   - p: the linear progress, clamped to [0, 1]
//
// Returns:
//   - float32: the eased progress
func (a Animation) Ease(p float32) float32 {
	p = min(max(p, 0), 1)
	switch a.Mode {
	case ModeCubic:
		return p * p * (3 - 2*p)
	case ModeSpring:
		return springResponse(p, a.Bounce)
	default:
		return p
	}
}

// springResponse evaluates the unit step response of a damped spring whose period is the full
// animation, so the curve has mostly settled at p = 1. A bounce of 0 is critically damped.
func springResponse(p, bounce float32) float32 {
	if p >= 1 {
		return 1
	}
	bounce = min(max(bounce, 0), 0.99)
	zeta := 1 - bounce
	omega := 2 * math32.Pi
	if zeta >= 1 {
		return 1 - math32.Exp(-omega*p)*(1+omega*p)
	}
	omegaD := omega * math32.Sqrt(1-zeta*zeta)
	decay := math32.Exp(-zeta * omega * p)
	return 1 - decay*(math32.Cos(omegaD*p)+(zeta*omega/omegaD)*math32.Sin(omegaD*p))
}

// AnimationState reports where an Animator is in its lifetime.
type AnimationState int

const (
	// AnimationRunning means the returned weights are an intermediate value.
	AnimationRunning AnimationState = iota

	// AnimationCompleted means the returned weights are the final target.
	AnimationCompleted
)

// Animator advances a weight animation frame by frame.
type Animator struct {
	origin  WeightVector
	target  WeightVector
	anim    Animation
	elapsed float32
	done    bool
}

// NewAnimator creates an Animator moving from origin to target.
//
// Parameters:
//   - origin: the weights at the start of the animation
//   - target: the weights at the end of the animation
//   - anim: the duration and easing
//
// Returns:
//   - *Animator: the animator, positioned at the start
func NewAnimator(origin, target WeightVector, anim Animation) *Animator {
	return &Animator{origin: origin, target: target, anim: anim}
}

// Update advances the animation by dt seconds.
//
// While time remains it advances and returns the eased mix of origin and target with
// AnimationRunning. Once the elapsed time has reached the duration it returns the target with
// AnimationCompleted exactly once. Every call after that returns ok == false.
//
// Parameters:
//   - dt: the frame delta in seconds
//
// Returns:
//   - WeightVector: the weights for this frame
//   - AnimationState: running or completed
//   - bool: false once the completed event has already been delivered
func (a *Animator) Update(dt float32) (WeightVector, AnimationState, bool) {
	if a.done {
		return WeightVector{}, AnimationCompleted, false
	}
	if a.elapsed >= a.anim.Duration {
		a.done = true
		return a.target, AnimationCompleted, true
	}

	a.elapsed += dt
	t := a.anim.Ease(a.elapsed / a.anim.Duration)
	return a.origin.Mix(a.target, t), AnimationRunning, true
}

// Target returns the weights the animation ends on.
func (a *Animator) Target() WeightVector {
	return a.target
}

// Done reports whether the completed event has been delivered.
func (a *Animator) Done() bool {
	return a.done
}
