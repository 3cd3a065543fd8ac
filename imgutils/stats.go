// Package imgutils has small image measurement helpers used to sanity
// check rendered previews.
package imgutils

import (
	"image"
	"image/color"
)

func ComputeGrayscaleAverage(img image.Image) float64 {
	bounds := img.Bounds()

	totalValue := 0.0
	numPixels := 0.0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			grayColor := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			totalValue += float64(grayColor.Y)
			numPixels++
		}
	}

	return totalValue / numPixels
}

// ComputeCoverage is the fraction of pixels that aren't pure black.
func ComputeCoverage(img image.Image) float64 {
	bounds := img.Bounds()

	lit := 0.0
	numPixels := 0.0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r|g|b != 0 {
				lit++
			}
			numPixels++
		}
	}

	return lit / numPixels
}
