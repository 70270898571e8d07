// Package events holds the annotated sound-event tables and answers
// temporal overlap queries against them. Events are loaded once at startup
// and are read-only for the rest of the run.
package events

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

// Event is a single annotated vocalization interval in a recording.
type Event struct {
	RecordingID string
	TMin        float64
	TMax        float64
	SpeciesID   int
	SongtypeID  int
}

// JointKey returns the species+songtype key ("<species>_<songtype>") used to
// index the joint label space.
func (e Event) JointKey() string {
	return fmt.Sprintf("%d_%d", e.SpeciesID, e.SongtypeID)
}

// Duration returns the annotated call length in seconds.
func (e Event) Duration() float64 {
	return e.TMax - e.TMin
}

// Store owns the loaded events and the joint class enumeration.
type Store struct {
	events      []Event
	byRecording map[string][]int // indices into events
	classMap    map[string]int   // joint key -> class index
	recordings  []string         // distinct recording ids, load order
}

// NewStore builds a store from a slice of events. The joint class map is
// derived deterministically: keys sorted by species id, then songtype id.
func NewStore(evts []Event) *Store {
	s := &Store{
		events:      evts,
		byRecording: make(map[string][]int),
		classMap:    make(map[string]int),
	}

	seen := make(map[string]bool)
	type jointKey struct {
		species  int
		songtype int
	}
	joint := make(map[jointKey]bool)

	for i := range evts {
		e := &evts[i]
		if !seen[e.RecordingID] {
			seen[e.RecordingID] = true
			s.recordings = append(s.recordings, e.RecordingID)
		}
		s.byRecording[e.RecordingID] = append(s.byRecording[e.RecordingID], i)
		joint[jointKey{e.SpeciesID, e.SongtypeID}] = true
	}

	keys := make([]jointKey, 0, len(joint))
	for k := range joint {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].species != keys[j].species {
			return keys[i].species < keys[j].species
		}
		return keys[i].songtype < keys[j].songtype
	})
	for i, k := range keys {
		s.classMap[fmt.Sprintf("%d_%d", k.species, k.songtype)] = i
	}

	return s
}

// SetClassMap replaces the derived joint class enumeration with an explicit
// one. Used when the enumeration must stay stable across differently
// filtered event subsets (cross-validation folds).
func (s *Store) SetClassMap(classMap map[string]int) {
	s.classMap = classMap
}

// ClassMap returns the joint species+songtype enumeration table.
func (s *Store) ClassMap() map[string]int {
	return s.classMap
}

// JointIndex maps an event to its joint class index. The second return is
// false when the event's key is not in the enumeration.
func (s *Store) JointIndex(e Event) (int, bool) {
	idx, ok := s.classMap[e.JointKey()]
	return idx, ok
}

// Len returns the number of events, which is also the length of a training
// epoch: one example is fetched per annotated event.
func (s *Store) Len() int {
	return len(s.events)
}

// Event returns the event at index i.
func (s *Store) Event(i int) Event {
	return s.events[i]
}

// Recordings returns the distinct recording ids in load order.
func (s *Store) Recordings() []string {
	return s.recordings
}

// Overlapping returns the events of a recording that overlap the half-open
// window [start, end): t_min < end && t_max > start.
func (s *Store) Overlapping(recordingID string, start, end float64) []Event {
	var out []Event
	for _, idx := range s.byRecording[recordingID] {
		e := s.events[idx]
		if e.TMin < end && e.TMax > start {
			out = append(out, e)
		}
	}
	return out
}

// Filter returns a new store restricted to events whose recording id is in
// keep. The joint class map is carried over unchanged so class indices stay
// stable across folds.
func (s *Store) Filter(keep map[string]bool) *Store {
	var evts []Event
	for i := range s.events {
		if keep[s.events[i].RecordingID] {
			evts = append(evts, s.events[i])
		}
	}
	out := NewStore(evts)
	out.classMap = s.classMap
	return out
}

// LoadCSV reads an event table from a CSV file with a header row. Column
// order is resolved by header name; frequency columns are tolerated and
// ignored.
func LoadCSV(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("events").
			Category(errors.CategoryFileIO).
			Context("operation", "load_event_table").
			Context("path", path).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only file

	evts, err := parseEvents(csv.NewReader(f))
	if err != nil {
		return nil, errors.New(err).
			Component("events").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_event_table").
			Context("path", path).
			Build()
	}
	return evts, nil
}

func parseEvents(r *csv.Reader) ([]Event, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"recording_id", "species_id", "songtype_id", "t_min", "t_max"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var evts []Event
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		e := Event{RecordingID: record[col["recording_id"]]}
		if e.SpeciesID, err = strconv.Atoi(record[col["species_id"]]); err != nil {
			return nil, fmt.Errorf("line %d: species_id: %w", line, err)
		}
		if e.SongtypeID, err = strconv.Atoi(record[col["songtype_id"]]); err != nil {
			return nil, fmt.Errorf("line %d: songtype_id: %w", line, err)
		}
		if e.TMin, err = strconv.ParseFloat(record[col["t_min"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: t_min: %w", line, err)
		}
		if e.TMax, err = strconv.ParseFloat(record[col["t_max"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: t_max: %w", line, err)
		}
		if e.TMax < e.TMin {
			return nil, fmt.Errorf("line %d: t_max %g before t_min %g", line, e.TMax, e.TMin)
		}
		evts = append(evts, e)
	}
	return evts, nil
}
