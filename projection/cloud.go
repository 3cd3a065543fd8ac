package projection

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/pointcloud"
)

// At returns the point for decimated grid cell (u, v).
func (c *Cloud) At(u, v int) Point {
	return c.Points[v*c.Width+u]
}

// Size is the total record count, bad points included.
func (c *Cloud) Size() int {
	return len(c.Points)
}

// Bad reports whether a point is the quiet-NaN "no data" record.
func (p Point) Bad() bool {
	return math.IsNaN(float64(p.Z))
}

// PackRGB packs 8-bit channels into the float-typed RGB field. This is a
// bit reinterpretation, not a numeric cast, so downstream consumers can
// shift the channels back out of the same 32 bits.
func PackRGB(r, g, b uint8) float32 {
	return math.Float32frombits(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// UnpackRGB recovers the channels from a packed RGB field.
func UnpackRGB(f float32) (r, g, b uint8) {
	bits := math.Float32bits(f)
	return uint8(bits >> 16), uint8(bits >> 8), uint8(bits)
}

// PointCloud converts the dense grid into an rdk point cloud, positions in
// millimeters to match the rest of the rdk stack. Bad points are dropped,
// the map-backed cloud is sparse by nature; the dense NaN convention only
// exists inside Cloud itself.
func (c *Cloud) PointCloud() (pointcloud.PointCloud, error) {
	pc := pointcloud.NewBasicPointCloud(len(c.Points))
	for _, p := range c.Points {
		if p.Bad() {
			continue
		}
		pos := r3.Vector{X: float64(p.X) * 1000.0, Y: float64(p.Y) * 1000.0, Z: float64(p.Z) * 1000.0}
		var d pointcloud.Data
		if c.Colored {
			r, g, b := UnpackRGB(p.RGB)
			d = pointcloud.NewColoredData(color.NRGBA{r, g, b, 255})
		} else {
			d = pointcloud.NewBasicData()
		}
		if err := pc.Set(pos, d); err != nil {
			return nil, err
		}
	}
	return pc, nil
}
