// Package labels derives clip-level and frame-level multi-label targets
// from the events overlapping a sampled window.
package labels

import (
	"math"

	"github.com/tphakala/rainforest-sed/internal/events"
	"github.com/tphakala/rainforest-sed/internal/sampler"
)

// Bundle carries the four label tensors of one example. Under mixup the
// values are lam/1-lam blends rather than booleans.
type Bundle struct {
	Weak           []float32   // [classes]
	Strong         [][]float32 // [frames][classes]
	WeakSongtype   []float32   // [classes+2]
	StrongSongtype [][]float32 // [frames][classes+2]
}

// NewBundle allocates a zeroed label bundle for the given frame resolution.
func NewBundle(frames, numClasses, numJointClasses int) *Bundle {
	b := &Bundle{
		Weak:           make([]float32, numClasses),
		Strong:         make([][]float32, frames),
		WeakSongtype:   make([]float32, numJointClasses),
		StrongSongtype: make([][]float32, frames),
	}
	for f := range frames {
		b.Strong[f] = make([]float32, numClasses)
		b.StrongSongtype[f] = make([]float32, numJointClasses)
	}
	return b
}

// Frames returns the frame resolution of the strong tensors.
func (b *Bundle) Frames() int {
	return len(b.Strong)
}

// Builder writes window labels into bundles using a store's overlap queries
// and joint class enumeration.
type Builder struct {
	store *events.Store
}

// NewBuilder returns a builder bound to an event store.
func NewBuilder(store *events.Store) *Builder {
	return &Builder{store: store}
}

// Apply marks every event overlapping the window in the bundle with the
// given value. The value is 1 outside mixup; under float-label mixup the
// primary window applies lam and the secondary 1-lam.
//
// Frame ranges use seconds_per_frame = duration/frames and half-open
// floor((t - offset)/spf) indices, clamped to [0, frames]. The clamp is a
// documented contract: an event touching only the window boundary writes
// nothing, where slice semantics in the source language no-opped silently.
func (b *Builder) Apply(bundle *Bundle, w sampler.Window, value float32) {
	overlapping := b.store.Overlapping(w.RecordingID, w.Offset, w.End())
	frames := bundle.Frames()
	if frames == 0 {
		return
	}
	secondsPerFrame := w.Duration / float64(frames)

	for _, e := range overlapping {
		joint, hasJoint := b.store.JointIndex(e)
		bundle.Weak[e.SpeciesID] = value
		if hasJoint {
			bundle.WeakSongtype[joint] = value
		}

		start := clampFrame(int(math.Floor((e.TMin-w.Offset)/secondsPerFrame)), frames)
		end := clampFrame(int(math.Floor((e.TMax-w.Offset)/secondsPerFrame)), frames)
		for f := start; f < end; f++ {
			bundle.Strong[f][e.SpeciesID] = value
			if hasJoint {
				bundle.StrongSongtype[f][joint] = value
			}
		}
	}
}

// ApplyAdditional merges auxiliary weak labels for a recording into the
// bundle at a fixed confidence. This is an override of the computed weak
// assignment for the listed species, not an additive blend.
func (b *Builder) ApplyAdditional(bundle *Bundle, additional []events.AdditionalLabel, value float32) {
	for _, al := range additional {
		if al.SpeciesID >= 0 && al.SpeciesID < len(bundle.Weak) {
			bundle.Weak[al.SpeciesID] = value
		}
	}
}

func clampFrame(f, frames int) int {
	if f < 0 {
		return 0
	}
	if f > frames {
		return frames
	}
	return f
}
