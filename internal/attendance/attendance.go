// Package attendance turns matcher output into the attendance record of a run.
package attendance

import (
	"context"
	"image"
	"time"

	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/matcher"
	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/sampler"
	"github.com/andresmejia3/rollcall/internal/types"
)

// TimeFormat is 24-hour HH:MM:SS.
const TimeFormat = "15:04:05"

// UnknownIdentifier is reported when a label has no entry in the gallery.
const UnknownIdentifier = "Unknown"

// Recorder stamps matched labels with their identifier and the local time.
type Recorder struct {
	gallery *gallery.Gallery
	now     func() time.Time
}

// NewRecorder returns a Recorder over g. A nil clock means time.Now.
func NewRecorder(g *gallery.Gallery, clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{gallery: g, now: clock}
}

// Record assembles the record for label at the current instant.
func (r *Recorder) Record(label string) types.AttendanceRecord {
	id, ok := r.gallery.IdentifierFor(label)
	if !ok {
		logger.Warning("matched label missing from gallery", logger.LoggerOptions{Key: "label", Data: label})
		id = UnknownIdentifier
	}
	return types.AttendanceRecord{
		Name:         label,
		EnrollmentNo: id,
		Timestamp:    r.now().Local().Format(TimeFormat),
	}
}

// Session is one matching run over a fitted gallery.
type Session struct {
	Model    *matcher.Model
	Recorder *Recorder
	Sampler  *sampler.Sampler

	candidate *types.AttendanceRecord
}

// NewSession fits g and prepares a run.
func NewSession(g *gallery.Gallery, smp *sampler.Sampler, clock func() time.Time) (*Session, error) {
	model, err := matcher.Fit(g)
	if err != nil {
		return nil, err
	}
	if smp == nil {
		smp = sampler.Default()
	}
	return &Session{Model: model, Recorder: NewRecorder(g, clock), Sampler: smp}, nil
}

// Observe matches every box in one frame. Each match replaces the current
// candidate, so the last box processed wins.
func (s *Session) Observe(frame types.Frame, boxes []image.Rectangle) {
	for _, box := range boxes {
		probe, err := s.Sampler.Sample(frame.Image, box)
		if err != nil {
			logger.Debug("skipping face", logger.LoggerOptions{Key: "error", Data: err.Error()})
			continue
		}
		m := s.Model.Predict(probe)
		rec := s.Recorder.Record(m.Label)
		s.candidate = &rec
		logger.Debug("candidate updated",
			logger.LoggerOptions{Key: "frame", Data: frame.Index},
			logger.LoggerOptions{Key: "label", Data: m.Label},
			logger.LoggerOptions{Key: "distance", Data: m.Distance},
		)
	}
}

// Result is the outcome as of now: the current candidate, or no_detection.
func (s *Session) Result() types.AttendanceResult {
	if s.candidate == nil {
		return types.AttendanceResult{Status: types.StatusNoDetection}
	}
	rec := *s.candidate
	return types.AttendanceResult{Status: types.StatusSuccess, Attendance: &rec}
}

// Run observes frames until stop fires or the feed ends. There is no automatic
// exit on a match; the result is whatever candidate exists when the loop ends.
func (s *Session) Run(ctx context.Context, loop *pipeline.Loop, stop <-chan struct{}) (types.AttendanceResult, pipeline.Stats, error) {
	stats, err := loop.Run(ctx, stop, func(frame types.Frame, boxes []image.Rectangle) bool {
		s.Observe(frame, boxes)
		return false
	})
	if err != nil {
		return types.AttendanceResult{}, stats, err
	}
	return s.Result(), stats, nil
}
