// Package cloudcam wraps the depth projection core as a Viam camera that
// serves point clouds built from another camera's depth frames.
package cloudcam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/rimage"
	"go.viam.com/rdk/rimage/transform"
	"go.viam.com/rdk/spatialmath"

	"github.com/erh/depthcloud"
	"github.com/erh/depthcloud/projection"
)

var Model = depthcloud.NamespaceFamily.WithModel("depth-to-pointcloud")

const intrinsicsWarnInterval = 5 * time.Second

func init() {
	resource.RegisterComponent(
		camera.API,
		Model,
		resource.Registration[camera.Camera, *Config]{
			Constructor: newDepthCamera,
		})
}

type Config struct {
	DepthCamera string  `json:"depth_camera"`
	ColorCamera string  `json:"color_camera,omitempty"`
	RangeMax    float64 `json:"range_max,omitempty"`
	UseQuietNaN bool    `json:"use_quiet_nan,omitempty"`
}

func (c *Config) Validate(path string) ([]string, []string, error) {
	if c.DepthCamera == "" {
		return nil, nil, fmt.Errorf("need a depth_camera")
	}
	if c.RangeMax < 0 {
		return nil, nil, fmt.Errorf("range_max can't be negative, got %f", c.RangeMax)
	}

	deps := []string{c.DepthCamera}
	if c.ColorCamera != "" {
		deps = append(deps, c.ColorCamera)
	}
	return deps, nil, nil
}

func newDepthCamera(ctx context.Context, deps resource.Dependencies, config resource.Config, logger logging.Logger) (camera.Camera, error) {
	newConf, err := resource.NativeConfig[*Config](config)
	if err != nil {
		return nil, err
	}

	dc := &depthCamera{
		name:   config.ResourceName(),
		cfg:    newConf,
		logger: logger,
	}

	dc.depth, err = camera.FromProvider(deps, newConf.DepthCamera)
	if err != nil {
		return nil, err
	}

	if newConf.ColorCamera != "" {
		dc.color, err = camera.FromProvider(deps, newConf.ColorCamera)
		if err != nil {
			return nil, err
		}
	}

	return dc, nil
}

type depthCamera struct {
	resource.AlwaysRebuild
	resource.TriviallyCloseable

	name   resource.Name
	cfg    *Config
	logger logging.Logger

	depth camera.Camera
	color camera.Camera // nil when no color camera is configured

	lock               sync.Mutex
	intrinsics         *transform.PinholeCameraIntrinsics
	lastIntrinsicsWarn time.Time
}

func (dc *depthCamera) Name() resource.Name {
	return dc.name
}

// getIntrinsics returns the cached model, asking the depth camera once and
// keeping the answer. Before the source camera knows its calibration this
// fails, and the next request tries again.
func (dc *depthCamera) getIntrinsics(ctx context.Context) (*transform.PinholeCameraIntrinsics, error) {
	dc.lock.Lock()
	defer dc.lock.Unlock()

	if dc.intrinsics != nil {
		return dc.intrinsics, nil
	}

	props, err := dc.depth.Properties(ctx)
	if err != nil {
		return nil, err
	}

	if props.IntrinsicParams == nil {
		if time.Since(dc.lastIntrinsicsWarn) > intrinsicsWarnInterval {
			dc.logger.Warnf("no intrinsics from %s yet, skipping point cloud conversion", dc.cfg.DepthCamera)
			dc.lastIntrinsicsWarn = time.Now()
		}
		return nil, transform.NewNoIntrinsicsError("depth camera has no intrinsics")
	}

	dc.intrinsics = props.IntrinsicParams
	return dc.intrinsics, nil
}

func (dc *depthCamera) nextDepthFrame(ctx context.Context, extra map[string]interface{}) (*projection.DepthFrame, error) {
	img, err := camera.DecodeImageFromCamera(ctx, dc.depth, nil, extra)
	if err != nil {
		return nil, err
	}

	frame, err := projection.DepthFrameFromImage(img)
	if err == nil {
		return frame, nil
	}
	if !errors.Is(err, projection.ErrUnsupportedEncoding) {
		return nil, err
	}

	// not a native depth type, see if the rdk knows how to read it as one
	dm, convErr := rimage.ConvertImageToDepthMap(ctx, img)
	if convErr != nil {
		dc.logger.Warnf("depth image from %s has unsupported encoding: %s", dc.cfg.DepthCamera, err)
		return nil, err
	}
	return projection.DepthFrameFromMap(dm), nil
}

// nextColorFrame never fails a conversion, a missing color frame just
// means an uncolored cloud.
func (dc *depthCamera) nextColorFrame(ctx context.Context, extra map[string]interface{}) *projection.ColorFrame {
	if dc.color == nil {
		return nil
	}

	img, err := camera.DecodeImageFromCamera(ctx, dc.color, nil, extra)
	if err != nil {
		dc.logger.Warnf("couldn't get color image from %s, leaving cloud uncolored: %s", dc.cfg.ColorCamera, err)
		return nil
	}
	return projection.ColorFrameFromImage(img)
}

func (dc *depthCamera) nextCloud(ctx context.Context, extra map[string]interface{}) (*projection.Cloud, error) {
	model, err := dc.getIntrinsics(ctx)
	if err != nil {
		return nil, err
	}

	frame, err := dc.nextDepthFrame(ctx, extra)
	if err != nil {
		return nil, err
	}

	return projection.Project(frame, model, projection.Options{
		RangeMax:    dc.cfg.RangeMax,
		UseQuietNaN: dc.cfg.UseQuietNaN,
		Color:       dc.nextColorFrame(ctx, extra),
	})
}

func (dc *depthCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	cloud, err := dc.nextCloud(ctx, extra)
	if err != nil {
		return nil, err
	}
	return cloud.PointCloud()
}

func (dc *depthCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	cloud, err := dc.nextCloud(ctx, extra)
	if err != nil {
		return nil, camera.ImageMetadata{}, err
	}

	data, err := rimage.EncodeImage(ctx, RenderCloud(cloud), mimeType)
	if err != nil {
		return nil, camera.ImageMetadata{}, err
	}
	return data, camera.ImageMetadata{MimeType: mimeType}, nil
}

func (dc *depthCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	cloud, err := dc.nextCloud(ctx, extra)
	if err != nil {
		return nil, resource.ResponseMetadata{}, err
	}

	ni, err := camera.NamedImageFromImage(RenderCloud(cloud), "projected", "image/png", data.Annotations{})
	if err != nil {
		return nil, resource.ResponseMetadata{}, err
	}
	return []camera.NamedImage{ni}, resource.ResponseMetadata{CapturedAt: time.Now()}, nil
}

func (dc *depthCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}

func (dc *depthCamera) Properties(ctx context.Context) (camera.Properties, error) {
	dc.lock.Lock()
	intrinsics := dc.intrinsics
	dc.lock.Unlock()

	return camera.Properties{
		SupportsPCD:     true,
		IntrinsicParams: intrinsics,
	}, nil
}

func (dc *depthCamera) Geometries(ctx context.Context, _ map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}
