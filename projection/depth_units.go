package projection

import (
	"fmt"
	"math"
)

// DepthEncoding identifies how the raw samples of a DepthFrame are stored.
type DepthEncoding int

const (
	// Depth16mm is 16-bit unsigned fixed point, one unit per millimeter.
	// A raw value of 0 means the sensor had no measurement for that pixel.
	Depth16mm DepthEncoding = iota + 1

	// Depth32f is 32-bit IEEE float, already in meters.
	// NaN means no measurement, any finite value is a real one.
	Depth32f
)

func (e DepthEncoding) String() string {
	switch e {
	case Depth16mm:
		return "16UC1"
	case Depth32f:
		return "32FC1"
	}
	return fmt.Sprintf("DepthEncoding(%d)", int(e))
}

// ErrUnsupportedEncoding means a depth frame used an encoding other than
// Depth16mm or Depth32f. The frame is refused, the next one is independent.
var ErrUnsupportedEncoding = fmt.Errorf("unsupported depth encoding")

// depthUnits decouples the projection math from the sample encoding.
// Raw values travel as float64 so one loop serves both encodings; the
// variant is picked once per frame, never per pixel.
type depthUnits interface {
	ToMeters(raw float64) float64
	FromMeters(meters float64) float64
	Valid(raw float64) bool
}

type fixedPoint16 struct{}

func (fixedPoint16) ToMeters(raw float64) float64      { return raw / 1000.0 }
func (fixedPoint16) FromMeters(meters float64) float64 { return meters * 1000.0 }
func (fixedPoint16) Valid(raw float64) bool            { return raw != 0 }

type floatMeters struct{}

func (floatMeters) ToMeters(raw float64) float64      { return raw }
func (floatMeters) FromMeters(meters float64) float64 { return meters }
func (floatMeters) Valid(raw float64) bool            { return !math.IsNaN(raw) }

func unitsFor(e DepthEncoding) (depthUnits, error) {
	switch e {
	case Depth16mm:
		return fixedPoint16{}, nil
	case Depth32f:
		return floatMeters{}, nil
	}
	return nil, fmt.Errorf("%w [%s]", ErrUnsupportedEncoding, e)
}
