package features

// Image is a channel-first feature tensor with values in [0,1]. Channel
// order is (melspec, pcen, clean_mel); the height axis is frequency and the
// width axis is time.
type Image struct {
	Channels int
	Height   int
	Width    int
	Data     []float32 // len Channels*Height*Width, channel-major
}

// NewImage allocates a zeroed image tensor.
func NewImage(channels, height, width int) *Image {
	return &Image{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// At returns the value at (channel, y, x).
func (im *Image) At(c, y, x int) float32 {
	return im.Data[(c*im.Height+y)*im.Width+x]
}

// Set writes the value at (channel, y, x).
func (im *Image) Set(c, y, x int, v float32) {
	im.Data[(c*im.Height+y)*im.Width+x] = v
}

// Frames returns the number of time frames, which is the width axis. The
// strong-label frame resolution is tied to this.
func (im *Image) Frames() int {
	return im.Width
}
