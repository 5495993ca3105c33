package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/rollcall/internal/attendance"
	"github.com/andresmejia3/rollcall/internal/capture"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/sampler"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/utils"
	"github.com/spf13/cobra"
)

var (
	attendOpts Options
	matchOpts  Options
)

// clock stamps attendance records.
var clock = time.Now

var attendCmd = &cobra.Command{
	Use:         "attend",
	Short:       "Match faces from the camera against the gallery and report attendance",
	Annotations: map[string]string{fetchesGallery: ""},
	Long: "Runs until Enter, Ctrl+C, or the end of the feed. The last face matched " +
		"before stopping is reported.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttend(cmd.Context(), attendOpts)
	},
}

var matchCmd = &cobra.Command{
	Use:         "match <image>",
	Short:       "Match the faces in a still image against the gallery",
	Annotations: map[string]string{fetchesGallery: ""},
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMatch(cmd.Context(), args[0], matchOpts)
	},
}

func init() {
	addCaptureFlags(attendCmd, &attendOpts)
	addDetectorFlags(matchCmd, &matchOpts)
	rootCmd.AddCommand(attendCmd)
	rootCmd.AddCommand(matchCmd)
}

func runAttend(ctx context.Context, opts Options) error {
	// 1. Fresh gallery for this session
	g, err := loadGallery(ctx)
	if err != nil {
		return fail("Failed to load the gallery", err, nil)
	}
	s, err := attendance.NewSession(g, sampler.Default(), clock)
	if err != nil {
		return fail("Failed to fit the gallery", err, nil)
	}

	// 2. Acquire detector and camera
	loop, det, err := openLoop(opts)
	if err != nil {
		return fail("Failed to open capture resources", err, nil)
	}
	defer det.Close()

	fmt.Fprintln(os.Stderr, "👀 Watching for faces. Press Enter (or Ctrl+C) to finish")
	return finishAttendance(s.Run(ctx, loop, utils.StopOnInput(stdinStop)))
}

func runMatch(ctx context.Context, path string, opts Options) error {
	g, err := loadGallery(ctx)
	if err != nil {
		return fail("Failed to load the gallery", err, nil)
	}
	s, err := attendance.NewSession(g, sampler.Default(), clock)
	if err != nil {
		return fail("Failed to fit the gallery", err, nil)
	}

	det, err := openDetector(detectorOptions(opts))
	if err != nil {
		return fail("Failed to load the face detector", err, nil)
	}
	defer det.Close()

	if _, err := capture.LoadImage(path); err != nil {
		return fail("Failed to read image", err, nil)
	}
	loop := &pipeline.Loop{Source: capture.NewFileSource(path), Detector: det}
	return finishAttendance(s.Run(ctx, loop, nil))
}

func finishAttendance(result types.AttendanceResult, stats pipeline.Stats, err error) error {
	if err != nil {
		return fail("Attendance session failed", err, nil)
	}
	logger.Info("attendance session finished",
		logger.LoggerOptions{Key: "frames", Data: stats.Frames},
		logger.LoggerOptions{Key: "faces", Data: stats.Detections},
		logger.LoggerOptions{Key: "status", Data: result.Status},
	)
	if result.Attendance != nil {
		a := result.Attendance
		fmt.Fprintf(os.Stderr, "✅ %s (%s) at %s\n", a.Name, a.EnrollmentNo, a.Timestamp)
	} else {
		fmt.Fprintln(os.Stderr, "🤷 No face detected")
	}
	emit(result)
	return nil
}
