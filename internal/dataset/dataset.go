// Package dataset assembles training and validation examples: a sampled
// audio window turned into a feature image plus its label bundle. Variants
// differ in how the window is chosen and whether a second window is mixed in.
package dataset

import (
	"math/rand/v2"

	"github.com/tphakala/rainforest-sed/internal/audio"
	"github.com/tphakala/rainforest-sed/internal/conf"
	"github.com/tphakala/rainforest-sed/internal/dsp"
	"github.com/tphakala/rainforest-sed/internal/errors"
	"github.com/tphakala/rainforest-sed/internal/events"
	"github.com/tphakala/rainforest-sed/internal/features"
	"github.com/tphakala/rainforest-sed/internal/labels"
	"github.com/tphakala/rainforest-sed/internal/mixup"
	"github.com/tphakala/rainforest-sed/internal/sampler"
)

// Kind selects a dataset variant. The set is closed; ParseKind rejects
// anything it does not know.
type Kind int

const (
	KindWaveformMixup Kind = iota
	KindSpectrogramMixup
	KindFPMixup
	KindCentered
	KindSequential
)

var kindNames = map[string]Kind{
	"waveform_mixup":    KindWaveformMixup,
	"spectrogram_mixup": KindSpectrogramMixup,
	"fp_mixup":          KindFPMixup,
	"centered":          KindCentered,
	"sequential":        KindSequential,
}

// ParseKind resolves a configured dataset kind name.
func ParseKind(name string) (Kind, error) {
	kind, ok := kindNames[name]
	if !ok {
		return 0, errors.Newf("unsupported dataset kind %q", name).
			Component("dataset").
			Category(errors.CategoryConfiguration).
			Context("kind", name).
			Build()
	}
	return kind, nil
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Example is one assembled training or validation item.
type Example struct {
	RecordingID string
	Index       int
	Image       *features.Image
	Targets     *labels.Bundle
}

// Dataset produces examples by index. Get takes the caller's random source
// so concurrent fetches stay reproducible under a fixed seed.
type Dataset interface {
	Len() int
	Get(index int, rng *rand.Rand) (*Example, error)
}

// New constructs the dataset variant named in the settings.
func New(settings *conf.Settings, meta *events.Metadata, reader *audio.Reader, extractor *features.Extractor, additional map[string][]events.AdditionalLabel) (Dataset, error) {
	kind, err := ParseKind(settings.Dataset.Kind)
	if err != nil {
		return nil, err
	}
	return NewKind(kind, settings, meta, reader, extractor, additional)
}

// NewKind constructs a specific dataset variant.
func NewKind(kind Kind, settings *conf.Settings, meta *events.Metadata, reader *audio.Reader, extractor *features.Extractor, additional map[string][]events.AdditionalLabel) (Dataset, error) {
	c := common{
		settings:   settings,
		meta:       meta,
		reader:     reader,
		extractor:  extractor,
		builder:    labels.NewBuilder(meta.TP),
		compositor: mixup.New(settings.Dataset.MixupProb, settings.Dataset.MixupAlpha),
		additional: additional,
	}

	switch kind {
	case KindWaveformMixup:
		return &waveformMixupDataset{common: c}, nil
	case KindSpectrogramMixup:
		return &spectrogramMixupDataset{common: c}, nil
	case KindFPMixup:
		if len(meta.FPOnlyRecordings) == 0 {
			return nil, errors.Newf("fp_mixup dataset requires recordings with only false-positive annotations").
				Component("dataset").
				Category(errors.CategoryConfiguration).
				Build()
		}
		return &fpMixupDataset{common: c}, nil
	case KindCentered:
		return &centeredDataset{common: c}, nil
	case KindSequential:
		return &sequentialDataset{common: c}, nil
	default:
		return nil, errors.Newf("unsupported dataset kind %d", int(kind)).
			Component("dataset").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// common holds the collaborators every variant shares.
type common struct {
	settings   *conf.Settings
	meta       *events.Metadata
	reader     *audio.Reader
	extractor  *features.Extractor
	builder    *labels.Builder
	compositor *mixup.Compositor
	additional map[string][]events.AdditionalLabel
}

func (c *common) windowDuration() float64 { return c.settings.Audio.WindowDuration }
func (c *common) clipDuration() float64   { return c.settings.Audio.ClipDuration }

// randomWindow samples a window around event i on the offset grid.
func (c *common) randomWindow(rng *rand.Rand, i int) (sampler.Window, error) {
	e := c.meta.TP.Event(i)
	offset, err := sampler.RandomOffset(rng, e.TMin, e.TMax, c.windowDuration(), c.clipDuration())
	if err != nil {
		return sampler.Window{}, err
	}
	return sampler.Window{RecordingID: e.RecordingID, Offset: offset, Duration: c.windowDuration()}, nil
}

// labelValues returns the primary and secondary label weights for a mixed
// example. Hard labels unless float labels are enabled.
func (c *common) labelValues(mixed bool, lam float64) (primary, secondary float32) {
	if mixed && c.settings.Dataset.FloatLabel && !c.settings.Dataset.NoLambda {
		return float32(lam), float32(1 - lam)
	}
	return 1, 1
}

// finish turns a feature image and the windows that produced it into an
// example. The secondary window is applied first so the primary weight wins
// when both windows carry the same class.
func (c *common) finish(index int, image *features.Image, primary sampler.Window, secondary *sampler.Window, primaryValue, secondaryValue float32) *Example {
	bundle := labels.NewBundle(image.Frames(), conf.NumClasses, conf.NumSongtypeClasses)
	if secondary != nil {
		c.builder.Apply(bundle, *secondary, secondaryValue)
	}
	c.builder.Apply(bundle, primary, primaryValue)
	if extra, ok := c.additional[primary.RecordingID]; ok {
		c.builder.ApplyAdditional(bundle, extra, float32(c.settings.Dataset.AdditionalLabelValue))
	}
	return &Example{
		RecordingID: primary.RecordingID,
		Index:       index,
		Image:       image,
		Targets:     bundle,
	}
}

// waveformMixupDataset blends raw waveforms before feature extraction. The
// secondary waveform is peak normalized so the blend weight controls its
// loudness regardless of the source recording's level.
type waveformMixupDataset struct {
	common
}

func (d *waveformMixupDataset) Len() int { return d.meta.TP.Len() }

func (d *waveformMixupDataset) Get(index int, rng *rand.Rand) (*Example, error) {
	w, err := d.randomWindow(rng, index)
	if err != nil {
		return nil, err
	}
	samples, err := d.reader.ReadWindow(w.RecordingID, w.Offset, w.Duration)
	if err != nil {
		return nil, err
	}

	var secondary *sampler.Window
	lam := 1.0
	if d.meta.TP.Len() > 1 && d.compositor.ShouldMix(rng) {
		j := d.compositor.PickSecondary(rng, d.meta.TP.Len(), index)
		sw, err := d.randomWindow(rng, j)
		if err != nil {
			return nil, err
		}
		other, err := d.reader.ReadWindow(sw.RecordingID, sw.Offset, sw.Duration)
		if err != nil {
			return nil, err
		}
		lam = d.compositor.Lambda(rng)
		samples = mixup.BlendWaveforms(samples, audio.NormalizePeak(other), lam)
		secondary = &sw
	}

	image, err := d.extractor.Extract(samples)
	if err != nil {
		return nil, err
	}
	pv, sv := d.labelValues(secondary != nil, lam)
	return d.finish(index, image, w, secondary, pv, sv), nil
}

// spectrogramMixupDataset blends power mel spectrograms instead of
// waveforms. With no_lambda the two spectrograms are summed unweighted and
// both windows keep hard labels.
type spectrogramMixupDataset struct {
	common
}

func (d *spectrogramMixupDataset) Len() int { return d.meta.TP.Len() }

func (d *spectrogramMixupDataset) Get(index int, rng *rand.Rand) (*Example, error) {
	w, err := d.randomWindow(rng, index)
	if err != nil {
		return nil, err
	}
	mel, err := d.melPower(w)
	if err != nil {
		return nil, err
	}

	var secondary *sampler.Window
	lam := 1.0
	if d.meta.TP.Len() > 1 && d.compositor.ShouldMix(rng) {
		j := d.compositor.PickSecondary(rng, d.meta.TP.Len(), index)
		sw, err := d.randomWindow(rng, j)
		if err != nil {
			return nil, err
		}
		other, err := d.melPower(sw)
		if err != nil {
			return nil, err
		}
		a, b := 1.0, 1.0
		if !d.settings.Dataset.NoLambda {
			lam = d.compositor.Lambda(rng)
			a, b = lam, 1-lam
		}
		mel, err = dsp.BlendSpectrograms(mel, other, a, b)
		if err != nil {
			return nil, err
		}
		secondary = &sw
	}

	image, err := d.extractor.FromMelPower(mel)
	if err != nil {
		return nil, err
	}
	pv, sv := d.labelValues(secondary != nil, lam)
	return d.finish(index, image, w, secondary, pv, sv), nil
}

func (c *common) melPower(w sampler.Window) ([][]float64, error) {
	samples, err := c.reader.ReadWindow(w.RecordingID, w.Offset, w.Duration)
	if err != nil {
		return nil, err
	}
	return c.extractor.MelPower(samples)
}

// fpMixupDataset blends a background window from a recording that carries
// only false-positive annotations. The background adds realistic negatives
// without touching the labels.
type fpMixupDataset struct {
	common
}

func (d *fpMixupDataset) Len() int { return d.meta.TP.Len() }

func (d *fpMixupDataset) Get(index int, rng *rand.Rand) (*Example, error) {
	w, err := d.randomWindow(rng, index)
	if err != nil {
		return nil, err
	}
	mel, err := d.melPower(w)
	if err != nil {
		return nil, err
	}

	if d.compositor.ShouldMix(rng) {
		recID := d.meta.FPOnlyRecordings[rng.IntN(len(d.meta.FPOnlyRecordings))]
		offset, err := sampler.UniformOffset(rng, d.windowDuration(), d.clipDuration())
		if err != nil {
			return nil, err
		}
		bg := sampler.Window{RecordingID: recID, Offset: offset, Duration: d.windowDuration()}
		other, err := d.melPower(bg)
		if err != nil {
			return nil, err
		}
		lam := d.compositor.Lambda(rng)
		mel, err = dsp.BlendSpectrograms(mel, other, lam, 1-lam)
		if err != nil {
			return nil, err
		}
	}

	image, err := d.extractor.FromMelPower(mel)
	if err != nil {
		return nil, err
	}
	return d.finish(index, image, w, nil, 1, 1), nil
}

// centeredDataset extracts one window per event with no mixing, the variant
// used together with auxiliary weak labels. With centering enabled each
// event sits in the middle of its window and the dataset is deterministic;
// otherwise the window is drawn at random around the event.
type centeredDataset struct {
	common
}

func (d *centeredDataset) Len() int { return d.meta.TP.Len() }

func (d *centeredDataset) Get(index int, rng *rand.Rand) (*Example, error) {
	var w sampler.Window
	if d.settings.Dataset.Centering {
		e := d.meta.TP.Event(index)
		offset := sampler.CenteredOffset(e.TMin, e.TMax, d.windowDuration(), d.clipDuration())
		w = sampler.Window{RecordingID: e.RecordingID, Offset: offset, Duration: d.windowDuration()}
	} else {
		var err error
		w, err = d.randomWindow(rng, index)
		if err != nil {
			return nil, err
		}
	}

	samples, err := d.reader.ReadWindow(w.RecordingID, w.Offset, w.Duration)
	if err != nil {
		return nil, err
	}
	image, err := d.extractor.Extract(samples)
	if err != nil {
		return nil, err
	}
	return d.finish(index, image, w, nil, 1, 1), nil
}

// sequentialDataset chops every recording into consecutive non-overlapping
// windows, covering the full clip for validation and inference.
type sequentialDataset struct {
	common
}

func (d *sequentialDataset) segments() int {
	return sampler.SegmentsPerClip(d.clipDuration(), d.windowDuration())
}

func (d *sequentialDataset) Len() int {
	return len(d.meta.TPRecordings) * d.segments()
}

func (d *sequentialDataset) Get(index int, _ *rand.Rand) (*Example, error) {
	segments := d.segments()
	recID := d.meta.TPRecordings[index/segments]
	offset := sampler.SequentialOffset(index%segments, d.windowDuration())
	w := sampler.Window{RecordingID: recID, Offset: offset, Duration: d.windowDuration()}

	samples, err := d.reader.ReadWindow(w.RecordingID, w.Offset, w.Duration)
	if err != nil {
		return nil, err
	}
	image, err := d.extractor.Extract(samples)
	if err != nil {
		return nil, err
	}
	return d.finish(index, image, w, nil, 1, 1), nil
}
