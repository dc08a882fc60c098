package morph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimatorLinear(t *testing.T) {
	a := NewAnimator(ZeroWeights(MaxTargetCount), NewWeightVector(1, 0, 0), Linear(2))

	w, state, ok := a.Update(1)
	require.True(t, ok)
	assert.Equal(t, AnimationRunning, state)
	assert.Equal(t, [MaxTargetCount]float32{0.5, 0, 0}, w.Weights, "midpoint of the animation")

	w, state, ok = a.Update(1)
	require.True(t, ok)
	assert.Equal(t, AnimationRunning, state)
	assert.Equal(t, [MaxTargetCount]float32{1, 0, 0}, w.Weights, "end of the animation")

	w, state, ok = a.Update(1)
	require.True(t, ok)
	assert.Equal(t, AnimationCompleted, state)
	assert.Equal(t, [MaxTargetCount]float32{1, 0, 0}, w.Weights)
	assert.True(t, a.Done())

	_, _, ok = a.Update(1)
	assert.False(t, ok, "no update past the end of the animation")
}

func TestAnimatorImmediate(t *testing.T) {
	a := NewAnimator(ZeroWeights(2), NewWeightVector(0.3, 0.7), Immediate)

	w, state, ok := a.Update(0.016)
	require.True(t, ok)
	assert.Equal(t, AnimationCompleted, state)
	assert.Equal(t, NewWeightVector(0.3, 0.7), w)

	_, _, ok = a.Update(0.016)
	assert.False(t, ok)
}

func TestAnimatorOvershootClampsProgress(t *testing.T) {
	a := NewAnimator(ZeroWeights(1), NewWeightVector(2), Linear(1))

	w, state, ok := a.Update(5)
	require.True(t, ok)
	assert.Equal(t, AnimationRunning, state)
	assert.Equal(t, float32(2), w.Weights[0])
}

func TestAnimationEase(t *testing.T) {
	tests := []struct {
		name string
		anim Animation
	}{
		{name: "linear", anim: Linear(1)},
		{name: "cubic", anim: Cubic(1)},
		{name: "spring", anim: Spring(1, DefaultSpringBounce)},
		{name: "critically damped spring", anim: Spring(1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, 0, tt.anim.Ease(0), 1e-6)
			assert.InDelta(t, 1, tt.anim.Ease(1), 1e-6)
			assert.InDelta(t, 0, tt.anim.Ease(-1), 1e-6)
		})
	}

	assert.Equal(t, float32(0.5), Cubic(1).Ease(0.5))
	assert.Less(t, Cubic(1).Ease(0.25), Linear(1).Ease(0.25))
}

func TestSpringOvershoots(t *testing.T) {
	anim := Spring(1, 0.5)
	peak := float32(0)
	for i := 0; i <= 100; i++ {
		peak = max(peak, anim.Ease(float32(i)/100))
	}
	assert.Greater(t, peak, float32(1))
}

func TestWeightVectorMix(t *testing.T) {
	from := NewWeightVector(0, 1)
	to := NewWeightVector(1, 0, 1)

	mid := from.Mix(to, 0.5)
	assert.Equal(t, [MaxTargetCount]float32{0.5, 0.5, 0.5}, mid.Weights)
	assert.Equal(t, MaxTargetCount, mid.Active)
}
