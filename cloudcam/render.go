package cloudcam

import (
	"image"

	"go.viam.com/rdk/rimage"

	"github.com/erh/depthcloud/projection"
)

// RenderCloud rasterizes the decimated grid back into a preview image,
// one pixel per point. Colored clouds use their packed color, uncolored
// ones shade by depth, near is bright. Bad points come out black.
func RenderCloud(c *projection.Cloud) image.Image {
	img := rimage.NewImage(c.Width, c.Height)

	maxZ := 0.0
	if !c.Colored {
		for _, p := range c.Points {
			if !p.Bad() && float64(p.Z) > maxZ {
				maxZ = float64(p.Z)
			}
		}
	}

	for v := 0; v < c.Height; v++ {
		for u := 0; u < c.Width; u++ {
			p := c.At(u, v)
			if p.Bad() {
				continue
			}
			if c.Colored {
				r, g, b := projection.UnpackRGB(p.RGB)
				img.SetXY(u, v, rimage.NewColor(r, g, b))
				continue
			}
			shade := uint8(0)
			if maxZ > 0 {
				shade = uint8(255 - (float64(p.Z)/maxZ)*255)
			}
			img.SetXY(u, v, rimage.NewColor(shade, shade, shade))
		}
	}

	return img
}
