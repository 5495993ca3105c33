//go:build !gocv

package capture

import "github.com/andresmejia3/rollcall/internal/apperrors"

// NativeAvailable reports whether the OpenCV-backed camera and detector are compiled in.
const NativeAvailable = false

var errNoNative = apperrors.New(apperrors.ResourceUnavailable,
	"native OpenCV backend not compiled in; rebuild with -tags gocv", nil)

func OpenNativeCamera(device string) (Camera, error) {
	return nil, errNoNative
}

func NewNativeDetector(opts DetectorOptions) (Detector, error) {
	return nil, errNoNative
}
