package model

import (
	"encoding/gob"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/rainforest-sed/internal/errors"
	"github.com/tphakala/rainforest-sed/internal/features"
)

// Output carries the head's predictions for a batch. Row i of every field
// corresponds to input image i.
type Output struct {
	Clipwise *mat.Dense // [batch, classes] post-sigmoid
	Logit    *mat.Dense // [batch, classes] pre-sigmoid

	Segmentwise    [][][]float64 // [batch][segments][classes] post-sigmoid
	Framewise      [][][]float64 // [batch][frames][classes] post-sigmoid
	FramewiseLogit [][][]float64 // [batch][frames][classes] pre-sigmoid
	NormAtt        [][][]float64 // [batch][segments][classes], attention pooling only
}

// Model is a backbone plus pooling head.
type Model struct {
	Backbone Backbone
	Head     *Head
}

// New assembles a model and checks that backbone and head agree on the
// embedding dimension.
func New(backbone Backbone, head *Head) (*Model, error) {
	if backbone.EmbedDim() != head.InDim {
		return nil, errors.Newf("backbone embedding dim %d does not match head input dim %d",
			backbone.EmbedDim(), head.InDim).
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}
	return &Model{Backbone: backbone, Head: head}, nil
}

// Forward runs a batch of images through backbone and head. Frame-level
// outputs are upsampled to each image's own frame count.
func (m *Model) Forward(images []*features.Image) (*Output, error) {
	out := &Output{
		Clipwise:       mat.NewDense(len(images), m.Head.Classes, nil),
		Logit:          mat.NewDense(len(images), m.Head.Classes, nil),
		Segmentwise:    make([][][]float64, len(images)),
		Framewise:      make([][][]float64, len(images)),
		FramewiseLogit: make([][][]float64, len(images)),
		NormAtt:        make([][][]float64, len(images)),
	}
	for i, image := range images {
		cache, err := m.forwardImage(image)
		if err != nil {
			return nil, err
		}
		out.Clipwise.SetRow(i, cache.clipwise)
		out.Logit.SetRow(i, cache.logit)
		out.Segmentwise[i] = denseRows(cache.cla)
		out.Framewise[i] = upsample(denseRows(cache.cla), image.Frames())
		out.FramewiseLogit[i] = upsample(denseRows(cache.claLogit), image.Frames())
		if cache.normAtt != nil {
			out.NormAtt[i] = denseRows(cache.normAtt)
		}
	}
	return out, nil
}

// forwardImage embeds one image and runs the head, returning the cache so
// training can reuse it for the backward pass.
func (m *Model) forwardImage(image *features.Image) (*forwardCache, error) {
	embeddings, err := m.Backbone.Embed(image)
	if err != nil {
		return nil, err
	}
	return m.Head.forward(embeddings)
}

// TrainForward is Forward for a single image that also returns the opaque
// state TrainBackward needs.
func (m *Model) TrainForward(image *features.Image) ([]float64, *TrainState, error) {
	cache, err := m.forwardImage(image)
	if err != nil {
		return nil, nil, err
	}
	return cache.clipwise, &TrainState{cache: cache}, nil
}

// TrainState carries one example's forward intermediates between
// TrainForward and TrainBackward.
type TrainState struct {
	cache *forwardCache
}

func denseRows(d *mat.Dense) [][]float64 {
	rows, cols := d.Dims()
	out := make([][]float64, rows)
	for r := range rows {
		row := make([]float64, cols)
		for c := range cols {
			row[c] = d.At(r, c)
		}
		out[r] = row
	}
	return out
}

// Save writes a gob checkpoint.
func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		return errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return f.Sync()
}

// Load reads a gob checkpoint and validates the head shapes.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()
	var m Model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, errors.New(err).
			Component("model").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := m.Head.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
