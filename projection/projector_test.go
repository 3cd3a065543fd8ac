package projection

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/rdk/rimage/transform"
	"go.viam.com/test"
)

var testIntrinsics = &transform.PinholeCameraIntrinsics{
	Width: 640, Height: 480,
	Fx: 1, Fy: 1, Ppx: 0, Ppy: 0,
}

func flatFrame32(w, h int, meters float32) *DepthFrame {
	samples := make([]float32, w*h)
	for i := range samples {
		samples[i] = meters
	}
	df, err := NewDepthFrame32(w, h, w, samples)
	if err != nil {
		panic(err)
	}
	return df
}

func flatFrame16(w, h int, mm uint16) *DepthFrame {
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = mm
	}
	df, err := NewDepthFrame16(w, h, w, samples)
	if err != nil {
		panic(err)
	}
	return df
}

func TestDecimatedSize(t *testing.T) {
	for _, dims := range [][2]int{{640, 480}, {7, 5}, {1, 1}, {2, 2}, {3, 4}} {
		w, h := dims[0], dims[1]
		cloud, err := Project(flatFrame16(w, h, 1000), testIntrinsics, Options{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cloud.Width, test.ShouldEqual, (w+1)/2)
		test.That(t, cloud.Height, test.ShouldEqual, (h+1)/2)
		test.That(t, cloud.Size(), test.ShouldEqual, ((w+1)/2)*((h+1)/2))
		test.That(t, cloud.Dense, test.ShouldBeFalse)
	}
}

func TestBackProjection(t *testing.T) {
	frame := flatFrame32(12, 22, 5.0)

	cloud, err := Project(frame, testIntrinsics, Options{})
	test.That(t, err, test.ShouldBeNil)

	// (u=10, v=20) on the decimated grid
	p := cloud.At(5, 10)
	test.That(t, p.X, test.ShouldAlmostEqual, 50.0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 100.0)
	test.That(t, p.Z, test.ShouldAlmostEqual, 5.0)
}

func TestBackProjectionFixedPoint(t *testing.T) {
	model := &transform.PinholeCameraIntrinsics{Fx: 500, Fy: 500, Ppx: 2, Ppy: 2}
	frame := flatFrame16(5, 5, 2000)

	cloud, err := Project(frame, model, Options{})
	test.That(t, err, test.ShouldBeNil)

	// center pixel sits on the principal point
	center := cloud.At(1, 1)
	test.That(t, center.X, test.ShouldAlmostEqual, 0)
	test.That(t, center.Y, test.ShouldAlmostEqual, 0)
	test.That(t, center.Z, test.ShouldAlmostEqual, 2.0)

	// (u=4, v=0): x = (4-2) * 2000 * (.001/500)
	p := cloud.At(2, 0)
	test.That(t, p.X, test.ShouldAlmostEqual, 2*2000*(.001/500.0), 1e-6)
	test.That(t, p.Y, test.ShouldAlmostEqual, -2*2000*(.001/500.0), 1e-6)
}

func TestRangeClamp(t *testing.T) {
	frame := flatFrame16(4, 4, 3000) // 3 meters

	cloud, err := Project(frame, testIntrinsics, Options{RangeMax: 2.0})
	test.That(t, err, test.ShouldBeNil)
	for _, p := range cloud.Points {
		test.That(t, p.Bad(), test.ShouldBeFalse)
		test.That(t, p.Z, test.ShouldAlmostEqual, 2.0)
	}
}

func TestRangeQuietNaN(t *testing.T) {
	frame := flatFrame16(4, 4, 3000)

	cloud, err := Project(frame, testIntrinsics, Options{RangeMax: 2.0, UseQuietNaN: true})
	test.That(t, err, test.ShouldBeNil)
	for _, p := range cloud.Points {
		test.That(t, p.Bad(), test.ShouldBeTrue)
		test.That(t, math.IsNaN(float64(p.X)), test.ShouldBeTrue)
		test.That(t, math.IsNaN(float64(p.Y)), test.ShouldBeTrue)
		test.That(t, math.IsNaN(float64(p.RGB)), test.ShouldBeTrue)
	}

	// valid and under range survives
	near := flatFrame16(4, 4, 1500)
	cloud, err = Project(near, testIntrinsics, Options{RangeMax: 2.0, UseQuietNaN: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.At(0, 0).Z, test.ShouldAlmostEqual, 1.5)
}

func TestInvalidSamples(t *testing.T) {
	missing := flatFrame16(4, 4, 0)

	// no clamping: NaN regardless of the nan flag
	for _, useNaN := range []bool{false, true} {
		cloud, err := Project(missing, testIntrinsics, Options{UseQuietNaN: useNaN})
		test.That(t, err, test.ShouldBeNil)
		for _, p := range cloud.Points {
			test.That(t, p.Bad(), test.ShouldBeTrue)
		}
	}

	// clamping without nan: missing points get pushed to the far clamp
	cloud, err := Project(missing, testIntrinsics, Options{RangeMax: 2.0})
	test.That(t, err, test.ShouldBeNil)
	for _, p := range cloud.Points {
		test.That(t, p.Bad(), test.ShouldBeFalse)
		test.That(t, p.Z, test.ShouldAlmostEqual, 2.0)
	}

	// clamping with nan: missing stays missing
	cloud, err = Project(missing, testIntrinsics, Options{RangeMax: 2.0, UseQuietNaN: true})
	test.That(t, err, test.ShouldBeNil)
	for _, p := range cloud.Points {
		test.That(t, p.Bad(), test.ShouldBeTrue)
	}

	// float frames use NaN as the missing sentinel
	nan := flatFrame32(4, 4, float32(math.NaN()))
	cloud, err = Project(nan, testIntrinsics, Options{})
	test.That(t, err, test.ShouldBeNil)
	for _, p := range cloud.Points {
		test.That(t, p.Bad(), test.ShouldBeTrue)
	}
}

func TestColorPacking(t *testing.T) {
	frame := flatFrame16(4, 4, 1000)

	pix := make([]uint8, 4*4*3)
	for i := 0; i < 16; i++ {
		pix[i*3] = 10
		pix[i*3+1] = 20
		pix[i*3+2] = 30
	}
	cf, err := NewColorFrame(4, 4, 3, pix)
	test.That(t, err, test.ShouldBeNil)

	cloud, err := Project(frame, testIntrinsics, Options{Color: cf})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Colored, test.ShouldBeTrue)

	p := cloud.At(0, 0)
	bits := math.Float32bits(p.RGB)
	test.That(t, bits, test.ShouldEqual, uint32(10)<<16|uint32(20)<<8|30)

	r, g, b := UnpackRGB(p.RGB)
	test.That(t, r, test.ShouldEqual, 10)
	test.That(t, g, test.ShouldEqual, 20)
	test.That(t, b, test.ShouldEqual, 30)

	test.That(t, math.Float32bits(PackRGB(10, 20, 30)), test.ShouldEqual, bits)
}

func TestColorOutOfBounds(t *testing.T) {
	frame := flatFrame16(8, 8, 1000)

	// color image smaller than the depth image: points past its extent
	// are black, the rest keep their color
	pix := make([]uint8, 2*2*3)
	for i := range pix {
		pix[i] = 200
	}
	cf, err := NewColorFrame(2, 2, 3, pix)
	test.That(t, err, test.ShouldBeNil)

	cloud, err := Project(frame, testIntrinsics, Options{Color: cf})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, math.Float32bits(cloud.At(0, 0).RGB), test.ShouldEqual, uint32(200)<<16|uint32(200)<<8|200)
	test.That(t, math.Float32bits(cloud.At(1, 0).RGB), test.ShouldEqual, uint32(0))
	test.That(t, math.Float32bits(cloud.At(3, 3).RGB), test.ShouldEqual, uint32(0))
	test.That(t, cloud.At(3, 3).Bad(), test.ShouldBeFalse)
}

func TestGrayscaleColor(t *testing.T) {
	frame := flatFrame16(2, 2, 1000)

	cf, err := NewColorFrame(2, 2, 1, []uint8{50, 60, 70, 80})
	test.That(t, err, test.ShouldBeNil)

	cloud, err := Project(frame, testIntrinsics, Options{Color: cf})
	test.That(t, err, test.ShouldBeNil)

	bits := math.Float32bits(cloud.At(0, 0).RGB)
	test.That(t, bits, test.ShouldEqual, uint32(50)<<16|uint32(50)<<8|50)
}

func TestIdempotence(t *testing.T) {
	samples := make([]uint16, 6*6)
	for i := range samples {
		samples[i] = uint16(i * 137 % 4000) // some zeros in here too
	}
	frame, err := NewDepthFrame16(6, 6, 6, samples)
	test.That(t, err, test.ShouldBeNil)

	opts := Options{RangeMax: 3.0, UseQuietNaN: true}
	a, err := Project(frame, testIntrinsics, opts)
	test.That(t, err, test.ShouldBeNil)
	b, err := Project(frame, testIntrinsics, opts)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, len(a.Points), test.ShouldEqual, len(b.Points))
	for i := range a.Points {
		test.That(t, math.Float32bits(a.Points[i].X), test.ShouldEqual, math.Float32bits(b.Points[i].X))
		test.That(t, math.Float32bits(a.Points[i].Y), test.ShouldEqual, math.Float32bits(b.Points[i].Y))
		test.That(t, math.Float32bits(a.Points[i].Z), test.ShouldEqual, math.Float32bits(b.Points[i].Z))
		test.That(t, math.Float32bits(a.Points[i].RGB), test.ShouldEqual, math.Float32bits(b.Points[i].RGB))
	}
}

func TestProjectInto(t *testing.T) {
	frame := flatFrame16(4, 4, 1000)

	buf := make([]Point, 10)
	cloud, err := ProjectInto(frame, testIntrinsics, Options{}, buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 4)
	test.That(t, &cloud.Points[0], test.ShouldEqual, &buf[0])
}

func TestProjectErrors(t *testing.T) {
	frame := flatFrame16(4, 4, 1000)

	_, err := Project(frame, nil, Options{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, transform.ErrNoIntrinsics), test.ShouldBeTrue)

	_, err = Project(frame, &transform.PinholeCameraIntrinsics{}, Options{})
	test.That(t, err, test.ShouldNotBeNil)

	bad := &DepthFrame{Width: 4, Height: 4, Stride: 4, Encoding: DepthEncoding(9)}
	_, err = Project(bad, testIntrinsics, Options{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrUnsupportedEncoding), test.ShouldBeTrue)

	_, err = Project(frame, testIntrinsics, Options{RangeMax: -1})
	test.That(t, err, test.ShouldNotBeNil)
}
