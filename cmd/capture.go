package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/capture"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/spf13/cobra"
)

// Swappable in tests.
var (
	openDetector = capture.OpenDetector
	openSource   = capture.OpenSource
)

// addCaptureFlags registers the camera and detector flags shared by enroll and attend.
// Zero values fall back to the loaded configuration.
func addCaptureFlags(c *cobra.Command, opts *Options) {
	addDetectorFlags(c, opts)
	c.Flags().StringVar(&opts.FramesDir, "frames-dir", "", "Replay still images from this directory instead of a camera")
	c.Flags().StringVar(&opts.CameraBackend, "camera-backend", "", "Camera backend: ffmpeg or native")
	c.Flags().StringVarP(&opts.CameraDevice, "device", "c", "", "Camera device (e.g. /dev/video0)")
	c.Flags().StringVar(&opts.CameraFormat, "format", "", "ffmpeg input format (v4l2, avfoundation, dshow)")
	c.Flags().IntVar(&opts.FPS, "fps", 0, "Capture frame rate")
}

func addDetectorFlags(c *cobra.Command, opts *Options) {
	c.Flags().StringVar(&opts.DetectorBackend, "detector", "", "Detector backend: python or native")
	c.Flags().StringVar(&opts.Cascade, "cascade", "", "Path to the Haar cascade XML")
	c.Flags().StringVar(&opts.Script, "detector-script", "", "Path to the Python detector script")
	c.Flags().Float64Var(&opts.ScaleFactor, "scale-factor", 0, "Haar cascade scale factor")
	c.Flags().IntVar(&opts.MinNeighbors, "min-neighbors", 0, "Haar cascade minimum neighbours")
}

func orString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func orFloat(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func detectorOptions(opts Options) capture.DetectorOptions {
	d := Cfg.Detector
	return capture.DetectorOptions{
		Backend:      orString(opts.DetectorBackend, d.Backend),
		Python:       d.Python,
		Script:       orString(opts.Script, d.Script),
		Cascade:      orString(opts.Cascade, d.Cascade),
		ScaleFactor:  orFloat(opts.ScaleFactor, d.ScaleFactor),
		MinNeighbors: orInt(opts.MinNeighbors, d.MinNeighbors),
	}
}

func sourceOptions(opts Options) capture.SourceOptions {
	c := Cfg.Camera
	return capture.SourceOptions{
		Backend:   orString(opts.CameraBackend, c.Backend),
		FramesDir: opts.FramesDir,
		Camera: capture.CameraOptions{
			FFmpeg: c.FFmpeg,
			Format: orString(opts.CameraFormat, c.Format),
			Device: orString(opts.CameraDevice, c.Device),
			FPS:    orInt(opts.FPS, c.FPS),
		},
	}
}

// openLoop acquires the detector and then the frame source. On success the
// caller owns both; the loop closes the source, the caller closes the detector.
func openLoop(opts Options) (*pipeline.Loop, capture.Detector, error) {
	det, err := openDetector(detectorOptions(opts))
	if err != nil {
		return nil, nil, err
	}
	src, err := openSource(sourceOptions(opts))
	if err != nil {
		det.Close()
		return nil, nil, err
	}
	return &pipeline.Loop{Source: src, Detector: det}, det, nil
}

// loadGallery rebuilds the gallery from the store for one session.
func loadGallery(ctx context.Context) (*gallery.Gallery, error) {
	raw, err := Repo.Gallery(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrGalleryFetch) {
			return nil, err
		}
		return nil, store.FetchError(err)
	}
	g, report, err := gallery.Validate(raw)
	if err != nil {
		return nil, err
	}
	if n := len(report.Events); n > 0 {
		logger.Warning("gallery repaired during load",
			logger.LoggerOptions{Key: "repaired", Data: report.Repairs()},
			logger.LoggerOptions{Key: "dropped", Data: report.Drops()},
		)
	}
	fmt.Fprintf(os.Stderr, "📚 Gallery loaded: %d samples\n", g.Len())
	return g, nil
}
