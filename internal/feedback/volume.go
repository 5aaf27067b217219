// internal/feedback/volume.go
package feedback

import (
	"math"
	"sync/atomic"

	"github.com/samber/lo"
)

// VolumeStep is the increment used by volume up/down controls.
const VolumeStep = 0.1

// Volume is a level in [0, 1] written by the UI and read by the worker at
// play time. Loads and stores are atomic, so a pulse always sees a whole
// value, either the old or the new one.
type Volume struct {
	bits atomic.Uint64
}

// NewVolume returns a Volume set to v (clamped).
func NewVolume(v float64) *Volume {
	vol := &Volume{}
	vol.Set(v)
	return vol
}

// Load returns the current level.
func (v *Volume) Load() float64 {
	return math.Float64frombits(v.bits.Load())
}

// Set stores level clamped to [0, 1]. NaN is treated as 0.
func (v *Volume) Set(level float64) {
	if math.IsNaN(level) {
		level = 0
	}
	v.bits.Store(math.Float64bits(lo.Clamp(level, 0, 1)))
}

// Step adds delta, rounds to the nearest tenth and clamps. Rounding keeps
// repeated steps from drifting off the 0.1 grid. Returns the new level.
func (v *Volume) Step(delta float64) float64 {
	for {
		old := v.bits.Load()
		next := lo.Clamp(math.Round((math.Float64frombits(old)+delta)*10)/10, 0, 1)
		if v.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// Muted reports whether the level is zero.
func (v *Volume) Muted() bool {
	return v.Load() <= 0
}
