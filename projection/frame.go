package projection

import (
	"fmt"
	"image"

	"go.viam.com/rdk/rimage"
)

// DepthFrame is a dense row-major depth image. The projector only ever
// reads it; the sample buffer stays owned by whoever built the frame.
type DepthFrame struct {
	Width    int
	Height   int
	Stride   int // row stride in samples, >= Width
	Encoding DepthEncoding

	mm []uint16
	f  []float32
}

// NewDepthFrame16 wraps a buffer of millimeter samples.
func NewDepthFrame16(width, height, stride int, samples []uint16) (*DepthFrame, error) {
	if err := checkFrameDims(width, height, stride, len(samples)); err != nil {
		return nil, err
	}
	return &DepthFrame{Width: width, Height: height, Stride: stride, Encoding: Depth16mm, mm: samples}, nil
}

// NewDepthFrame32 wraps a buffer of meter samples.
func NewDepthFrame32(width, height, stride int, samples []float32) (*DepthFrame, error) {
	if err := checkFrameDims(width, height, stride, len(samples)); err != nil {
		return nil, err
	}
	return &DepthFrame{Width: width, Height: height, Stride: stride, Encoding: Depth32f, f: samples}, nil
}

func checkFrameDims(width, height, stride, n int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("bad frame size (%d, %d)", width, height)
	}
	if stride < width {
		return fmt.Errorf("stride %d smaller than width %d", stride, width)
	}
	if need := stride*(height-1) + width; n < need {
		return fmt.Errorf("sample buffer too small, have %d need %d", n, need)
	}
	return nil
}

// DepthFrameFromMap copies an rdk depth map (millimeter samples) into a frame.
func DepthFrameFromMap(dm *rimage.DepthMap) *DepthFrame {
	w, h := dm.Width(), dm.Height()
	samples := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			samples[y*w+x] = uint16(dm.GetDepth(x, y))
		}
	}
	df, _ := NewDepthFrame16(w, h, w, samples)
	return df
}

// DepthFrameFromImage builds a frame from the image types depth cameras
// actually hand back: an rdk depth map, or a 16-bit grayscale PNG decode.
func DepthFrameFromImage(img image.Image) (*DepthFrame, error) {
	switch im := img.(type) {
	case *rimage.DepthMap:
		return DepthFrameFromMap(im), nil
	case *image.Gray16:
		b := im.Bounds()
		w, h := b.Dx(), b.Dy()
		samples := make([]uint16, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				samples[y*w+x] = im.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
		return NewDepthFrame16(w, h, w, samples)
	}
	return nil, fmt.Errorf("%w [%T]", ErrUnsupportedEncoding, img)
}

func (df *DepthFrame) raw(u, v int) float64 {
	if df.Encoding == Depth32f {
		return float64(df.f[v*df.Stride+u])
	}
	return float64(df.mm[v*df.Stride+u])
}

// ColorFrame is an aligned color image sampled in depth pixel space. A nil
// *ColorFrame means "no color" and short-circuits all color logic.
type ColorFrame struct {
	Width    int
	Height   int
	Channels int // 1 (gray), 3 (RGB) or 4 (RGBA)
	Pix      []uint8
}

// NewColorFrame wraps a packed row-major channel buffer.
func NewColorFrame(width, height, channels int, pix []uint8) (*ColorFrame, error) {
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("bad channel count %d", channels)
	}
	if err := checkFrameDims(width, height, width, len(pix)/channels); err != nil {
		return nil, err
	}
	return &ColorFrame{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// ColorFrameFromImage flattens any image into a 4-channel frame.
func ColorFrameFromImage(img image.Image) *ColorFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			pix[i] = uint8(r >> 8)
			pix[i+1] = uint8(g >> 8)
			pix[i+2] = uint8(bl >> 8)
			pix[i+3] = uint8(a >> 8)
			i += 4
		}
	}
	cf, _ := NewColorFrame(w, h, 4, pix)
	return cf
}

// packedAt returns the 24-bit (R<<16 | G<<8 | B) color at a depth-space
// coordinate. Out of bounds is not an error, just black for that point.
// Grayscale replicates the single value into all three channels.
func (cf *ColorFrame) packedAt(u, v int) uint32 {
	if u < 0 || v < 0 || u >= cf.Width || v >= cf.Height {
		return 0
	}
	o := (v*cf.Width + u) * cf.Channels
	if cf.Channels == 1 {
		g := uint32(cf.Pix[o])
		return g<<16 | g<<8 | g
	}
	return uint32(cf.Pix[o])<<16 | uint32(cf.Pix[o+1])<<8 | uint32(cf.Pix[o+2])
}
