package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"os"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/rimage"
	"go.viam.com/rdk/rimage/transform"

	"github.com/erh/depthcloud"
	"github.com/erh/depthcloud/cloudcam"
	"github.com/erh/depthcloud/projection"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	logger := logging.NewLogger("depthpc")
	ctx := context.Background()

	cmd := flag.String("cmd", "", "command")
	host := flag.String("host", "", "hostname")
	cameraName := flag.String("camera", "", "depth camera to use")
	in := flag.String("in", "", "input depth image (16-bit png)")
	colorIn := flag.String("color", "", "aligned color image (png)")
	intrinsicsFile := flag.String("intrinsics", "", "intrinsics json file")
	out := flag.String("out", "", "output file")

	rangeMax := flag.Float64("range-max", 0, "far clamp in meters, 0 disables")
	useNaN := flag.Bool("nan", false, "emit NaN instead of clamping past range-max")

	flag.Parse()

	opts := projection.Options{RangeMax: *rangeMax, UseQuietNaN: *useNaN}

	if *cmd == "" {
		return fmt.Errorf("need a cmd")
	}

	if *cmd == "convert" || *cmd == "preview" {
		if *in == "" || *out == "" {
			return fmt.Errorf("need an 'in' and an 'out'")
		}
		if *intrinsicsFile == "" {
			return fmt.Errorf("need an intrinsics file")
		}

		model, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(*intrinsicsFile)
		if err != nil {
			return err
		}

		frame, err := readDepthFile(*in)
		if err != nil {
			return err
		}

		if *colorIn != "" {
			img, err := rimage.ReadImageFromFile(*colorIn)
			if err != nil {
				return err
			}
			opts.Color = projection.ColorFrameFromImage(img)
		}

		cloud, err := projection.Project(frame, model, opts)
		if err != nil {
			return err
		}
		logger.Infof("projected %dx%d -> %d points", frame.Width, frame.Height, cloud.Size())

		if *cmd == "preview" {
			return rimage.WriteImageToFile(*out, cloudcam.RenderCloud(cloud))
		}

		pc, err := cloud.PointCloud()
		if err != nil {
			return err
		}
		return writePCToFile(*out, pc)
	}

	if *cmd == "download" {
		if *out == "" {
			return fmt.Errorf("need an 'out'")
		}

		machine, err := depthcloud.ConnectToHostFromCLIToken(ctx, *host, logger)
		if err != nil {
			return err
		}
		defer machine.Close(ctx)

		deps, err := depthcloud.MachineToDependencies(machine)
		if err != nil {
			return err
		}

		myCamera, err := camera.FromProvider(deps, *cameraName)
		if err != nil {
			return err
		}

		props, err := myCamera.Properties(ctx)
		if err != nil {
			return err
		}
		if props.IntrinsicParams == nil {
			return fmt.Errorf("camera %s has no intrinsics", *cameraName)
		}

		img, err := camera.DecodeImageFromCamera(ctx, myCamera, nil, nil)
		if err != nil {
			return err
		}

		frame, err := projection.DepthFrameFromImage(img)
		if err != nil {
			return err
		}

		cloud, err := projection.Project(frame, props.IntrinsicParams, opts)
		if err != nil {
			return err
		}
		logger.Infof("projected %dx%d -> %d points", frame.Width, frame.Height, cloud.Size())

		pc, err := cloud.PointCloud()
		if err != nil {
			return err
		}
		return writePCToFile(*out, pc)
	}

	return fmt.Errorf("invalid command [%s]", *cmd)
}

func readDepthFile(fn string) (*projection.DepthFrame, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	return projection.DepthFrameFromImage(img)
}

func writePCToFile(fn string, pc pointcloud.PointCloud) error {
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return pointcloud.ToPCD(pc, f, pointcloud.PCDBinary)
}
