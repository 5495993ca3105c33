package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/rollcall/internal/enroll"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/sampler"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/utils"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollOpts Options

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Capture face samples for one student and store them in the gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(cmd.Context(), enrollOpts)
	},
}

func init() {
	enrollCmd.Flags().StringVarP(&enrollOpts.Name, "name", "n", "", "Student name")
	enrollCmd.Flags().StringVarP(&enrollOpts.RollNo, "roll", "r", "", "Student roll / enrollment number")
	enrollCmd.Flags().IntVar(&enrollOpts.Stride, "stride", 0, "Keep one of every N detected faces")
	enrollCmd.Flags().IntVar(&enrollOpts.MaxSamples, "max-samples", 0, "Stop after this many samples")
	addCaptureFlags(enrollCmd, &enrollOpts)

	enrollCmd.MarkFlagRequired("name")
	enrollCmd.MarkFlagRequired("roll")
	rootCmd.AddCommand(enrollCmd)
}

func validateEnrollFlags(opts *Options) error {
	opts.Name = strings.TrimSpace(opts.Name)
	opts.RollNo = strings.TrimSpace(opts.RollNo)
	if opts.Name == "" {
		return errors.New("--name must not be blank")
	}
	if opts.RollNo == "" {
		return errors.New("--roll must not be blank")
	}
	if opts.Stride < 0 || opts.MaxSamples < 0 {
		return errors.New("--stride and --max-samples must not be negative")
	}
	return nil
}

// runEnroll captures one batch and persists it. An empty batch is reported, not stored.
func runEnroll(ctx context.Context, opts Options) error {
	if err := validateEnrollFlags(&opts); err != nil {
		return err
	}
	session := uuid.NewString()
	logger.Info("enrollment started",
		logger.LoggerOptions{Key: "session", Data: session},
		logger.LoggerOptions{Key: "rollNo", Data: opts.RollNo},
	)

	// 1. Acquire detector and camera
	loop, det, err := openLoop(opts)
	if err != nil {
		return fail("Failed to open capture resources", err, nil)
	}
	defer det.Close()

	// 2. Collect samples
	es := enroll.NewSession(opts.Name, opts.RollNo, enroll.Options{
		Stride: orInt(opts.Stride, Cfg.Enroll.Stride),
		Max:    orInt(opts.MaxSamples, Cfg.Enroll.Max),
	})
	bar := progressbar.NewOptions(es.Max(),
		progressbar.OptionSetDescription("📸 Enrolling "+opts.Name),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	fmt.Fprintln(os.Stderr, "⏎  Press Enter (or Ctrl+C) to stop early")

	batch, stats, err := es.Run(ctx, loop, sampler.Default(), utils.StopOnInput(stdinStop), func(n int) {
		bar.Set(n)
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fail("Enrollment session failed", err, nil)
	}
	logger.Info("enrollment capture finished",
		logger.LoggerOptions{Key: "session", Data: session},
		logger.LoggerOptions{Key: "frames", Data: stats.Frames},
		logger.LoggerOptions{Key: "faces", Data: stats.Detections},
		logger.LoggerOptions{Key: "samples", Data: len(batch.Samples)},
	)

	if batch.Empty() {
		fmt.Fprintln(os.Stderr, "🤷 No face samples captured; nothing to enroll")
		emit(types.EnrollmentResult{Status: types.StatusEmpty, Name: opts.Name, RollNo: opts.RollNo})
		return nil
	}

	// 3. Persist. The capture may have ended on Ctrl+C, so the save ignores that cancellation.
	student, err := Repo.SaveEnrollment(context.WithoutCancel(ctx), batch)
	if err != nil {
		return fail("Failed to store enrollment", err, nil)
	}
	fmt.Fprintf(os.Stderr, "✅ Enrolled %s (%s) with %d samples\n", student.Name, student.RollNo, len(batch.Samples))

	emit(types.EnrollmentResult{
		Status:       types.StatusSuccess,
		Name:         opts.Name,
		RollNo:       opts.RollNo,
		Samples:      len(batch.Samples),
		Dimension:    batch.Dimension,
		EncodedFaces: batch.Base64(),
		StudentID:    student.ID,
	})
	return nil
}
