package model

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rainforest-sed/internal/features"
)

const testClasses = 24

func testModel(t *testing.T, pooling PoolingKind) *Model {
	t.Helper()
	backbone := NewSpectralBackbone(3, 21, 8)
	rng := rand.New(rand.NewPCG(1213, 0))
	head := NewHead(backbone.EmbedDim(), 128, testClasses, pooling, 0.5, rng)
	m, err := New(backbone, head)
	require.NoError(t, err)
	return m
}

func testImage(seed uint64) *features.Image {
	rng := rand.New(rand.NewPCG(seed, 0))
	img := features.NewImage(3, 42, 160)
	for c := range img.Channels {
		for y := range img.Height {
			for x := range img.Width {
				img.Set(c, y, x, rng.Float32())
			}
		}
	}
	return img
}

func TestForwardShapes(t *testing.T) {
	t.Parallel()
	m := testModel(t, PoolingAttention)
	images := []*features.Image{testImage(1), testImage(2)}

	out, err := m.Forward(images)
	require.NoError(t, err)

	rows, cols := out.Clipwise.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, testClasses, cols)

	// Stride 8 over 160 frames gives 20 segments; framewise output is
	// upsampled back to the image's frame count.
	require.Len(t, out.Segmentwise[0], 20)
	require.Len(t, out.Segmentwise[0][0], testClasses)
	require.Len(t, out.Framewise[0], 160)
	require.Len(t, out.FramewiseLogit[0], 160)

	for i := range rows {
		for k := range cols {
			v := out.Clipwise.At(i, k)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestAttentionSumsToOneOverTime(t *testing.T) {
	t.Parallel()
	m := testModel(t, PoolingAttention)
	out, err := m.Forward([]*features.Image{testImage(3)})
	require.NoError(t, err)

	att := out.NormAtt[0]
	require.NotEmpty(t, att)
	for k := range testClasses {
		sum := 0.0
		for tIdx := range att {
			w := att[tIdx][k]
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "class %d", k)
	}
}

func TestMaxPoolingClipwise(t *testing.T) {
	t.Parallel()
	m := testModel(t, PoolingMax)
	out, err := m.Forward([]*features.Image{testImage(4)})
	require.NoError(t, err)

	for k := range testClasses {
		assert.InDelta(t, sigmoid(out.Logit.At(0, k)), out.Clipwise.At(0, k), 1e-12)
	}
	assert.Empty(t, out.NormAtt[0])
}

func TestInterpolateRepeatAndPad(t *testing.T) {
	t.Parallel()
	segments := [][]float64{{0}, {1}, {2}, {3}, {4}}
	frames := upsample(segments, 17)
	require.Len(t, frames, 17)

	// Ratio 17 // 5 = 3: frames [0,3) equal segment 0, [3,6) segment 1 and
	// so on; the two-frame tail replicates the last segment.
	for f := range 15 {
		assert.Equal(t, float64(f/3), frames[f][0], "frame %d", f)
	}
	assert.Equal(t, 4.0, frames[15][0])
	assert.Equal(t, 4.0, frames[16][0])
}

func TestPadFramewiseNoopWhenLongEnough(t *testing.T) {
	t.Parallel()
	frames := [][]float64{{1}, {2}}
	assert.Len(t, PadFramewise(frames, 2), 2)
	assert.Len(t, PadFramewise(frames, 1), 2)
}

func TestCheckpointRoundTrip(t *testing.T) {
	t.Parallel()
	m := testModel(t, PoolingAttention)
	img := testImage(5)
	before, err := m.Forward([]*features.Image{img})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	after, err := loaded.Forward([]*features.Image{img})
	require.NoError(t, err)

	for k := range testClasses {
		assert.InDelta(t, before.Clipwise.At(0, k), after.Clipwise.At(0, k), 1e-12)
	}
}

func TestBackboneMismatchedHead(t *testing.T) {
	t.Parallel()
	backbone := NewSpectralBackbone(3, 21, 8)
	rng := rand.New(rand.NewPCG(1, 0))
	head := NewHead(backbone.EmbedDim()+1, 128, testClasses, PoolingAttention, 0.5, rng)
	_, err := New(backbone, head)
	require.Error(t, err)
}

func TestGradientStepReducesLoss(t *testing.T) {
	t.Parallel()
	m := testModel(t, PoolingAttention)
	img := testImage(6)
	target := make([]float32, testClasses)
	target[3] = 1
	target[7] = 1

	bce := func(pred []float64) float64 {
		sum := 0.0
		for k, p := range pred {
			p = math.Min(math.Max(p, 1e-7), 1-1e-7)
			y := float64(target[k])
			sum += -(y*math.Log(p) + (1-y)*math.Log(1-p))
		}
		return sum / float64(len(pred))
	}

	clip, _, err := m.TrainForward(img)
	require.NoError(t, err)
	initial := bce(clip)

	for range 100 {
		_, state, err := m.TrainForward(img)
		require.NoError(t, err)
		grads := NewGradients(m.Head)
		m.TrainBackward(grads, state, target)
		m.ApplyGradients(grads, 0.01)
	}

	clip, _, err = m.TrainForward(img)
	require.NoError(t, err)
	assert.Less(t, bce(clip), initial)
}
