// Package audio reads recording files and serves fixed-length waveform
// windows from them. WAV and FLAC containers are supported; files are
// mono-reduced and resampled to the configured rate on load.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tphakala/flac"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

const (
	// Decoded waveforms stay cached briefly so the many windows cut from
	// one 60 s clip within an epoch do not re-decode the file each time.
	waveformCacheTTL     = 2 * time.Minute
	waveformCacheSweep   = 5 * time.Minute
	supportedSuffixFLAC  = ".flac"
	supportedSuffixWAV   = ".wav"
	defaultProbePriority = supportedSuffixFLAC
)

// Reader resolves recording ids to audio files in a directory and serves
// waveform windows at a fixed sample rate.
type Reader struct {
	dir        string
	suffix     string
	sampleRate int
	cache      *gocache.Cache
}

// NewReader probes the directory for the preferred container format
// (FLAC first, WAV as fallback) and returns a reader bound to it.
func NewReader(dir string, sampleRate int) (*Reader, error) {
	suffix, err := probeSuffix(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{
		dir:        dir,
		suffix:     suffix,
		sampleRate: sampleRate,
		cache:      gocache.New(waveformCacheTTL, waveformCacheSweep),
	}, nil
}

// Suffix returns the container suffix the reader resolved to.
func (r *Reader) Suffix() string {
	return r.suffix
}

// probeSuffix prefers FLAC when the directory contains any, else WAV.
func probeSuffix(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("operation", "probe_suffix").
			Context("dir", dir).
			Build()
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), defaultProbePriority) {
			return supportedSuffixFLAC, nil
		}
	}
	return supportedSuffixWAV, nil
}

// ReadWindow returns duration seconds of mono audio starting at offset
// seconds, resampled to the reader's sample rate. Windows running past the
// end of the recording are zero padded. A missing or unreadable file is a
// fatal error for the fetch, never silently skipped.
func (r *Reader) ReadWindow(recordingID string, offset, duration float64) ([]float64, error) {
	samples, err := r.waveform(recordingID)
	if err != nil {
		return nil, err
	}

	start := int(offset * float64(r.sampleRate))
	length := int(duration * float64(r.sampleRate))
	out := make([]float64, length)
	for i := range length {
		if idx := start + i; idx >= 0 && idx < len(samples) {
			out[i] = samples[idx]
		}
	}
	return out, nil
}

// waveform returns the full decoded recording, from cache when possible.
func (r *Reader) waveform(recordingID string) ([]float64, error) {
	if cached, ok := r.cache.Get(recordingID); ok {
		return cached.([]float64), nil
	}

	path := filepath.Join(r.dir, recordingID+r.suffix)
	samples, err := DecodeFile(path, r.sampleRate)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(recordingID, samples)
	return samples, nil
}

// DecodeFile decodes a whole audio file to mono float64 samples at the
// target sample rate. The container is resolved by file suffix.
func DecodeFile(path string, targetRate int) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("operation", "open_audio_file").
			Context("path", path).
			Build()
	}
	defer file.Close() //nolint:errcheck // read-only file

	var samples []float64
	var sourceRate int
	switch strings.ToLower(filepath.Ext(path)) {
	case supportedSuffixFLAC:
		samples, sourceRate, err = decodeFLAC(file)
	case supportedSuffixWAV:
		samples, sourceRate, err = decodeWAV(file)
	default:
		err = fmt.Errorf("unsupported audio container %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudio).
			Context("operation", "decode_audio_file").
			Context("path", path).
			Build()
	}

	if sourceRate != targetRate {
		samples = Resample(samples, sourceRate, targetRate)
	}
	return samples, nil
}

func decodeWAV(file *os.File) ([]float64, int, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("input is not a valid WAV audio file")
	}

	divisor, err := audioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, 0, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	numChans := int(decoder.NumChans)
	if numChans < 1 {
		return nil, 0, fmt.Errorf("invalid channel count %d", numChans)
	}

	frames := len(buf.Data) / numChans
	samples := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range numChans {
			sum += float64(buf.Data[i*numChans+c]) / divisor
		}
		samples[i] = sum / float64(numChans)
	}
	return samples, int(decoder.SampleRate), nil
}

func decodeFLAC(file *os.File) ([]float64, int, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, 0, err
	}

	divisor, err := audioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, 0, err
	}

	bytesPerSample := decoder.BitsPerSample / 8
	stride := bytesPerSample * decoder.NChannels

	var samples []float64
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, 0, err
		}

		for i := 0; i+stride <= len(frame); i += stride {
			var sum float64
			for c := range decoder.NChannels {
				off := i + c*bytesPerSample
				var sample int32
				switch decoder.BitsPerSample {
				case 16:
					sample = int32(int16(binary.LittleEndian.Uint16(frame[off:])))
				case 24:
					sample = int32(frame[off]) | int32(frame[off+1])<<8 | int32(frame[off+2])<<16
					// Sign extend 24-bit values.
					sample = sample << 8 >> 8
				case 32:
					sample = int32(binary.LittleEndian.Uint32(frame[off:]))
				}
				sum += float64(sample) / divisor
			}
			samples = append(samples, sum/float64(decoder.NChannels))
		}
	}
	return samples, decoder.SampleRate, nil
}

// audioDivisor returns the int-to-float conversion divisor for a bit depth.
func audioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio file bit depth: %d", bitDepth)
	}
}
