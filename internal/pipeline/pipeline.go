// Package pipeline drives the capture -> detect -> visit loop shared by the
// enrollment and attendance sessions.
package pipeline

import (
	"context"
	"errors"
	"image"
	"io"

	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/types"
)

// Source yields frames until it is exhausted. Any error from Read is treated
// as end-of-stream by the loop.
type Source interface {
	Read(ctx context.Context) (types.Frame, error)
	Close() error
}

// Detector returns the face boxes found in a frame, in detector order.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// State is the loop's lifecycle stage.
type State int

const (
	Running State = iota
	Stopping
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Done:
		return "done"
	}
	return "unknown"
}

// Visitor is called once per frame with its detections. Returning true asks
// the loop to stop after this frame.
type Visitor func(frame types.Frame, boxes []image.Rectangle) (stop bool)

// Stats summarizes one run.
type Stats struct {
	Frames     int
	Detections int
	EndOfFeed  bool // the source ran dry, as opposed to a stop request
}

// Loop reads frames from Source, detects faces, and hands them to a Visitor.
type Loop struct {
	Source   Source
	Detector Detector

	state State
}

// State reports where the loop is in its lifecycle.
func (l *Loop) State() State { return l.state }

// Run processes frames until the visitor asks to stop, stop is signalled, ctx
// is cancelled, or the source is exhausted. The source is closed on return.
// Detector failures skip the frame; they never end the loop.
func (l *Loop) Run(ctx context.Context, stop <-chan struct{}, visit Visitor) (Stats, error) {
	var stats Stats
	l.state = Running
	defer func() {
		if err := l.Source.Close(); err != nil {
			logger.Warning("closing frame source", logger.LoggerOptions{Key: "error", Data: err.Error()})
		}
		l.state = Done
	}()

	for l.state == Running {
		// 1. Observe stop requests between frames
		select {
		case <-ctx.Done():
			l.state = Stopping
			continue
		case <-stop:
			l.state = Stopping
			continue
		default:
		}

		// 2. Acquire
		frame, err := l.Source.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warning("frame read failed, ending session", logger.LoggerOptions{Key: "error", Data: err.Error()})
			}
			stats.EndOfFeed = true
			l.state = Stopping
			continue
		}
		stats.Frames++

		// 3. Detect
		boxes, err := l.Detector.Detect(ctx, frame.Image)
		if err != nil {
			logger.Warning("detection failed, skipping frame",
				logger.LoggerOptions{Key: "frame", Data: frame.Index},
				logger.LoggerOptions{Key: "error", Data: err.Error()},
			)
			boxes = nil
		}
		stats.Detections += len(boxes)

		// 4. Visit
		if visit(frame, boxes) {
			l.state = Stopping
		}
	}
	return stats, nil
}
