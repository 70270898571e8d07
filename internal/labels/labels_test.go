package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rainforest-sed/internal/events"
	"github.com/tphakala/rainforest-sed/internal/sampler"
)

const (
	testClasses = 24
	testJoint   = 26
	testFrames  = 100
)

func testStore() *events.Store {
	return events.NewStore([]events.Event{
		{RecordingID: "rec", SpeciesID: 3, SongtypeID: 1, TMin: 12.0, TMax: 12.4},
		{RecordingID: "rec", SpeciesID: 7, SongtypeID: 4, TMin: 30.0, TMax: 31.0},
		{RecordingID: "other", SpeciesID: 5, SongtypeID: 1, TMin: 2.0, TMax: 3.0},
	})
}

func TestApplyStrongImpliesWeak(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testStore())
	bundle := NewBundle(testFrames, testClasses, testJoint)
	b.Apply(bundle, sampler.Window{RecordingID: "rec", Offset: 7.2, Duration: 10}, 1)

	for f := range testFrames {
		for c := range testClasses {
			if bundle.Strong[f][c] > 0 {
				assert.Greater(t, bundle.Weak[c], float32(0), "frame %d class %d", f, c)
			}
		}
	}
	assert.Equal(t, float32(1), bundle.Weak[3])
	assert.Equal(t, float32(0), bundle.Weak[7], "event outside the window stays unlabeled")
}

func TestApplyFrameRange(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testStore())
	bundle := NewBundle(testFrames, testClasses, testJoint)
	// Window [7.2, 17.2), event [12.0, 12.4): seconds per frame = 0.1, so
	// frames [48, 52) are active.
	b.Apply(bundle, sampler.Window{RecordingID: "rec", Offset: 7.2, Duration: 10}, 1)

	for f := range testFrames {
		want := float32(0)
		if f >= 48 && f < 52 {
			want = 1
		}
		assert.Equal(t, want, bundle.Strong[f][3], "frame %d", f)
	}
}

func TestApplyClampsFrameIndices(t *testing.T) {
	t.Parallel()
	store := events.NewStore([]events.Event{
		{RecordingID: "rec", SpeciesID: 2, SongtypeID: 1, TMin: 0.0, TMax: 60.0},
	})
	b := NewBuilder(store)
	bundle := NewBundle(testFrames, testClasses, testJoint)
	// Event spans far past the window on both sides; writes clamp to the
	// bundle instead of going out of range.
	require.NotPanics(t, func() {
		b.Apply(bundle, sampler.Window{RecordingID: "rec", Offset: 25, Duration: 10}, 1)
	})
	for f := range testFrames {
		assert.Equal(t, float32(1), bundle.Strong[f][2])
	}
}

func TestApplySongtypeLabels(t *testing.T) {
	t.Parallel()
	store := testStore()
	b := NewBuilder(store)
	bundle := NewBundle(testFrames, testClasses, testJoint)
	b.Apply(bundle, sampler.Window{RecordingID: "rec", Offset: 7.2, Duration: 10}, 1)

	joint, ok := store.JointIndex(events.Event{SpeciesID: 3, SongtypeID: 1})
	require.True(t, ok)
	assert.Equal(t, float32(1), bundle.WeakSongtype[joint])
	assert.Equal(t, float32(1), bundle.StrongSongtype[50][joint])
}

func TestMixupLabelSplit(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testStore())
	bundle := NewBundle(testFrames, testClasses, testJoint)

	lam := float32(0.7)
	// Secondary first, primary second; each window overlaps a different
	// event.
	b.Apply(bundle, sampler.Window{RecordingID: "other", Offset: 0, Duration: 10}, 1-lam)
	b.Apply(bundle, sampler.Window{RecordingID: "rec", Offset: 7.2, Duration: 10}, lam)

	assert.Equal(t, lam, bundle.Weak[3])
	assert.Equal(t, 1-lam, bundle.Weak[5])
	assert.Equal(t, float32(1), bundle.Weak[3]+bundle.Weak[5])
}

func TestApplyAdditionalOverrides(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testStore())
	bundle := NewBundle(testFrames, testClasses, testJoint)
	bundle.Weak[9] = 0.3

	b.ApplyAdditional(bundle, []events.AdditionalLabel{
		{RecordingID: "rec", SpeciesID: 9},
		{RecordingID: "rec", SpeciesID: 99}, // out of range, ignored
	}, 0.9)

	assert.Equal(t, float32(0.9), bundle.Weak[9])
}
