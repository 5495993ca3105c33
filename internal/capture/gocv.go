//go:build gocv

package capture

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/types"
	"gocv.io/x/gocv"
)

// NativeAvailable reports whether the OpenCV-backed camera and detector are compiled in.
const NativeAvailable = true

// GocvCamera reads frames straight from an OpenCV VideoCapture.
type GocvCamera struct {
	webcam *gocv.VideoCapture
	mat    gocv.Mat
	index  int
}

// OpenNativeCamera opens a device id ("0") or path.
func OpenNativeCamera(device string) (Camera, error) {
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "cannot open camera", err)
	}
	return &GocvCamera{webcam: webcam, mat: gocv.NewMat()}, nil
}

func (c *GocvCamera) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if ok := c.webcam.Read(&c.mat); !ok || c.mat.Empty() {
		return types.Frame{}, io.EOF
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return types.Frame{}, fmt.Errorf("convert frame %d: %w", c.index, err)
	}
	f := types.Frame{Index: c.index, Image: img}
	c.index++
	return f, nil
}

func (c *GocvCamera) Close() error {
	c.mat.Close()
	return c.webcam.Close()
}

// CascadeDetector runs a Haar cascade in-process.
type CascadeDetector struct {
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
}

// NewNativeDetector loads the cascade file.
func NewNativeDetector(opts DetectorOptions) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(opts.Cascade) {
		classifier.Close()
		return nil, apperrors.New(apperrors.ResourceUnavailable,
			fmt.Sprintf("failed to load face cascade classifier %s", opts.Cascade), nil)
	}
	return &CascadeDetector{classifier: classifier, scaleFactor: opts.ScaleFactor, minNeighbors: opts.MinNeighbors}, nil
}

func (d *CascadeDetector) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	return d.classifier.DetectMultiScaleWithParams(gray, d.scaleFactor, d.minNeighbors, 0, image.Point{}, image.Point{}), nil
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
