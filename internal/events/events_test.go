package events

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "train_tp.csv", `recording_id,species_id,songtype_id,t_min,f_min,t_max,f_max
rec_a,3,1,12.0,100.0,12.4,400.0
rec_b,7,4,0.5,50.0,2.0,300.0
`)
	evts, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, Event{RecordingID: "rec_a", SpeciesID: 3, SongtypeID: 1, TMin: 12.0, TMax: 12.4}, evts[0])
	assert.Equal(t, "7_4", evts[1].JointKey())
	assert.InDelta(t, 1.5, evts[1].Duration(), 1e-9)
}

func TestLoadCSVMissingColumn(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "bad.csv", "recording_id,species_id\nrec_a,3\n")
	_, err := LoadCSV(path)
	require.Error(t, err)
}

func TestStoreOverlappingHalfOpen(t *testing.T) {
	t.Parallel()
	store := NewStore([]Event{
		{RecordingID: "rec", SpeciesID: 0, TMin: 5, TMax: 8},
		{RecordingID: "rec", SpeciesID: 1, TMin: 10, TMax: 12},
		{RecordingID: "other", SpeciesID: 2, TMin: 5, TMax: 8},
	})

	inside := store.Overlapping("rec", 4, 9)
	require.Len(t, inside, 1)
	assert.Equal(t, 0, inside[0].SpeciesID)

	// Touching the boundary does not overlap: [8, 10) misses both events.
	assert.Empty(t, store.Overlapping("rec", 8, 10))

	// Partial overlap on either side counts.
	both := store.Overlapping("rec", 7, 11)
	assert.Len(t, both, 2)

	assert.Empty(t, store.Overlapping("missing", 0, 60))
}

func TestClassMapDeterministic(t *testing.T) {
	t.Parallel()
	evts := []Event{
		{RecordingID: "a", SpeciesID: 5, SongtypeID: 1},
		{RecordingID: "b", SpeciesID: 2, SongtypeID: 4},
		{RecordingID: "c", SpeciesID: 5, SongtypeID: 4},
		{RecordingID: "d", SpeciesID: 2, SongtypeID: 4},
	}
	m1 := NewStore(evts).ClassMap()
	m2 := NewStore([]Event{evts[3], evts[2], evts[1], evts[0]}).ClassMap()
	assert.Equal(t, m1, m2)
	// Sorted by species then songtype.
	assert.Equal(t, 0, m1["2_4"])
	assert.Equal(t, 1, m1["5_1"])
	assert.Equal(t, 2, m1["5_4"])
}

func TestBuildMetadata(t *testing.T) {
	t.Parallel()
	tp := writeCSV(t, "tp.csv", `recording_id,species_id,songtype_id,t_min,t_max
rec_a,3,1,12.0,12.4
rec_missing,4,1,1.0,2.0
`)
	fp := writeCSV(t, "fp.csv", `recording_id,species_id,songtype_id,t_min,t_max
rec_a,5,1,3.0,4.0
rec_bg,6,1,7.0,8.0
`)
	meta, err := BuildMetadata(tp, fp, []string{"rec_a", "rec_bg"})
	require.NoError(t, err)

	// Only recordings with both audio and TP annotations train.
	assert.Equal(t, []string{"rec_a"}, meta.TPRecordings)
	assert.Equal(t, 1, meta.TP.Len())

	// rec_bg has FP annotations but no TP ones.
	assert.Equal(t, []string{"rec_bg"}, meta.FPOnlyRecordings)

	// The class map spans both tables even after filtering.
	_, ok := meta.TP.ClassMap()["4_1"]
	assert.True(t, ok)
	_, ok = meta.TP.ClassMap()["6_1"]
	assert.True(t, ok)
}

func TestStoreFilterKeepsClassMap(t *testing.T) {
	t.Parallel()
	s := NewStore([]Event{
		{RecordingID: "rec_a", SpeciesID: 3, SongtypeID: 1, TMin: 1, TMax: 2},
		{RecordingID: "rec_b", SpeciesID: 5, SongtypeID: 4, TMin: 3, TMax: 4},
	})

	filtered := s.Filter(map[string]bool{"rec_a": true})
	assert.Equal(t, 1, filtered.Len())
	assert.Equal(t, []string{"rec_a"}, filtered.Recordings())

	// Class indices stay stable even though rec_b's events are gone.
	idx, ok := filtered.JointIndex(Event{SpeciesID: 5, SongtypeID: 4})
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestLoadAdditionalLabels(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "extra.csv", "filename,species\nrec_a,3\nrec_a,7\nrec_b,1\n")
	labels, err := LoadAdditionalLabels(path)
	require.NoError(t, err)
	require.Len(t, labels["rec_a"], 2)
	assert.Equal(t, 3, labels["rec_a"][0].SpeciesID)
	assert.Len(t, labels["rec_b"], 1)
}

func TestLoadSubmissionSchema(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "sample_submission.csv", "recording_id,s0,s1,s2\nrec_x,0,0,0\nrec_y,0,0,0\n")
	schema, err := LoadSubmissionSchema(path)
	require.NoError(t, err)
	assert.Equal(t, 3, schema.NumClasses())
	assert.Equal(t, []string{"rec_x", "rec_y"}, schema.RecordingIDs)
}

func TestLoadSubmissionSchemaBadHeader(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "bad_submission.csv", "recording_id,s0,s2\nrec_x,0,0\n")
	_, err := LoadSubmissionSchema(path)
	require.Error(t, err)
}
