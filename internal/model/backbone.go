package model

import (
	"encoding/gob"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/rainforest-sed/internal/errors"
	"github.com/tphakala/rainforest-sed/internal/features"
)

// Backbone maps a feature image to a sequence of segment embeddings, one
// row per coarse time segment. The head does not care how the embeddings
// were computed, only their dimension.
type Backbone interface {
	// Embed returns a [segments, EmbedDim] matrix for one image.
	Embed(image *features.Image) (*mat.Dense, error)

	// EmbedDim is the width of every embedding row.
	EmbedDim() int
}

// SpectralBackbone is a fixed, parameter-free reference backbone for tests
// and smoke runs. It splits the frequency axis into groups and emits the
// per-group mean and max of every channel, pooled over a block of frames
// per segment.
type SpectralBackbone struct {
	Channels int // image channels expected
	Groups   int // frequency groups per channel
	Stride   int // frames pooled into one segment
}

// NewSpectralBackbone returns a reference backbone producing embeddings of
// dimension channels * groups * 2.
func NewSpectralBackbone(channels, groups, stride int) *SpectralBackbone {
	if stride < 1 {
		stride = 1
	}
	return &SpectralBackbone{Channels: channels, Groups: groups, Stride: stride}
}

func (b *SpectralBackbone) EmbedDim() int {
	return b.Channels * b.Groups * 2
}

func (b *SpectralBackbone) Embed(image *features.Image) (*mat.Dense, error) {
	if image.Channels != b.Channels {
		return nil, errors.Newf("backbone expects %d channels, image has %d", b.Channels, image.Channels).
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}
	segments := image.Width / b.Stride
	if segments < 1 {
		segments = 1
	}
	out := mat.NewDense(segments, b.EmbedDim(), nil)

	groupHeight := image.Height / b.Groups
	if groupHeight < 1 {
		groupHeight = 1
	}
	for s := range segments {
		x0 := s * b.Stride
		x1 := min(x0+b.Stride, image.Width)
		col := 0
		for c := range image.Channels {
			for g := range b.Groups {
				y0 := g * groupHeight
				y1 := min(y0+groupHeight, image.Height)
				if g == b.Groups-1 {
					y1 = image.Height
				}
				sum, peak, n := 0.0, math.Inf(-1), 0
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						v := float64(image.At(c, y, x))
						sum += v
						if v > peak {
							peak = v
						}
						n++
					}
				}
				if n == 0 {
					peak = 0
				} else {
					sum /= float64(n)
				}
				out.Set(s, col, sum)
				out.Set(s, col+1, peak)
				col += 2
			}
		}
	}
	return out, nil
}

func init() {
	gob.Register(&SpectralBackbone{})
}
