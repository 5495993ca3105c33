package capture

import (
	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/worker"
)

// Camera is a frame source that owns a device.
type Camera = pipeline.Source

// Detector is a face detector that holds an external resource.
type Detector interface {
	pipeline.Detector
	Close() error
}

// Backend names accepted by OpenSource and OpenDetector.
const (
	BackendFFmpeg = "ffmpeg"
	BackendPython = "python"
	BackendNative = "native"
)

// DetectorOptions configures the Haar cascade detector.
type DetectorOptions struct {
	Backend      string
	Python       string
	Script       string
	Cascade      string
	ScaleFactor  float64
	MinNeighbors int
}

// SourceOptions selects where frames come from. FramesDir wins over the camera.
type SourceOptions struct {
	Backend   string
	FramesDir string
	Camera    CameraOptions
}

// OpenSource acquires the configured frame source.
func OpenSource(opts SourceOptions) (Camera, error) {
	if opts.FramesDir != "" {
		src, err := OpenDir(opts.FramesDir)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	switch opts.Backend {
	case BackendNative:
		return OpenNativeCamera(opts.Camera.Device)
	case BackendFFmpeg, "":
		cam, err := OpenCamera(opts.Camera)
		if err != nil {
			return nil, err
		}
		return cam, nil
	default:
		return nil, apperrors.New(apperrors.ResourceUnavailable, "unknown camera backend "+opts.Backend, nil)
	}
}

// OpenDetector loads the configured face detector.
func OpenDetector(opts DetectorOptions) (Detector, error) {
	switch opts.Backend {
	case BackendNative:
		return NewNativeDetector(opts)
	case BackendPython, "":
		w, err := worker.NewDetectorWorker(worker.Options{
			Python:       opts.Python,
			Script:       opts.Script,
			Cascade:      opts.Cascade,
			ScaleFactor:  opts.ScaleFactor,
			MinNeighbors: opts.MinNeighbors,
		})
		if err != nil {
			return nil, err
		}
		return workerDetector{w}, nil
	default:
		return nil, apperrors.New(apperrors.ResourceUnavailable, "unknown detector backend "+opts.Backend, nil)
	}
}

type workerDetector struct {
	*worker.DetectorWorker
}

func (d workerDetector) Close() error {
	d.DetectorWorker.Close()
	return nil
}
