package projection

import (
	"fmt"
	"math"

	"go.viam.com/rdk/rimage/transform"
)

// Options control one conversion. The zero value means no range clamping,
// no NaN substitution on clamp, no color.
type Options struct {
	// RangeMax is the far clamp in meters, 0 disables clamping.
	RangeMax float64

	// UseQuietNaN emits NaN points for samples past RangeMax instead of
	// clamping them, and keeps missing samples as NaN even when RangeMax
	// would otherwise substitute for them.
	UseQuietNaN bool

	// Color is the aligned color image, nil for an uncolored cloud.
	Color *ColorFrame
}

// Point is one output record. RGB carries a 24-bit packed color in its raw
// bit pattern, it is never a meaningful float value. Bad points are quiet
// NaN in all four fields.
type Point struct {
	X, Y, Z float32
	RGB     float32
}

// Cloud is the dense decimated output grid, row-major, one Point per even
// (u, v) of the source frame. Dense is false because bad points stay in
// place as NaN records rather than being dropped.
type Cloud struct {
	Width   int
	Height  int
	Dense   bool
	Colored bool
	Points  []Point
}

// Project back-projects a depth frame through a pinhole model into a point
// cloud, sampling every second row and column. It is pure: no state is
// kept between calls and concurrent calls on independent inputs are fine.
func Project(depth *DepthFrame, model *transform.PinholeCameraIntrinsics, opts Options) (*Cloud, error) {
	return ProjectInto(depth, model, opts, nil)
}

// ProjectInto is Project with a caller-supplied output buffer, reused when
// it has the capacity for the full decimated grid.
func ProjectInto(depth *DepthFrame, model *transform.PinholeCameraIntrinsics, opts Options, out []Point) (*Cloud, error) {
	if model == nil || model.Fx <= 0 || model.Fy <= 0 {
		return nil, transform.NewNoIntrinsicsError("cannot project depth frame")
	}
	if opts.RangeMax < 0 {
		return nil, fmt.Errorf("negative range max %f", opts.RangeMax)
	}
	units, err := unitsFor(depth.Encoding)
	if err != nil {
		return nil, err
	}

	outW := (depth.Width + 1) / 2
	outH := (depth.Height + 1) / 2
	n := outW * outH
	if cap(out) >= n {
		out = out[:n]
	} else {
		out = make([]Point, n)
	}

	// Unit conversion folds into the focal length scaling so the inner
	// loop multiplies raw depth directly.
	unitScaling := units.ToMeters(1)
	constantX := unitScaling / model.Fx
	constantY := unitScaling / model.Fy
	badPoint := float32(math.NaN())

	var rangeRaw float64
	if opts.RangeMax != 0 {
		rangeRaw = units.FromMeters(opts.RangeMax)
	}

	i := 0
	for v := 0; v < depth.Height; v += 2 {
		for u := 0; u < depth.Width; u += 2 {
			d := depth.raw(u, v)

			if !units.Valid(d) {
				if opts.RangeMax != 0 && !opts.UseQuietNaN {
					d = rangeRaw
				} else {
					out[i] = Point{badPoint, badPoint, badPoint, badPoint}
					i++
					continue
				}
			} else if opts.RangeMax != 0 && d > rangeRaw {
				if opts.UseQuietNaN {
					out[i] = Point{badPoint, badPoint, badPoint, badPoint}
					i++
					continue
				}
				d = rangeRaw
			}

			pt := Point{
				X: float32((float64(u) - model.Ppx) * d * constantX),
				Y: float32((float64(v) - model.Ppy) * d * constantY),
				Z: float32(units.ToMeters(d)),
			}
			if opts.Color != nil {
				pt.RGB = math.Float32frombits(opts.Color.packedAt(u, v))
			}
			out[i] = pt
			i++
		}
	}

	return &Cloud{
		Width:   outW,
		Height:  outH,
		Dense:   false,
		Colored: opts.Color != nil,
		Points:  out,
	}, nil
}
