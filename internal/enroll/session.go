// Package enroll accumulates face samples for one subject into an enrollment batch.
package enroll

import (
	"context"
	"image"

	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/sampler"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/vector"
)

const (
	DefaultStride = 5
	DefaultMax    = 50
)

// Options tunes a Session. Zero values fall back to the defaults.
type Options struct {
	Stride    int
	Max       int
	Dimension int
}

// Session collects up to Max samples, keeping the first of every Stride offers.
type Session struct {
	label      string
	identifier string
	opts       Options

	offered int
	samples [][]uint8
	stopped bool
}

// NewSession starts an enrollment for one subject.
func NewSession(label, identifier string, opts Options) *Session {
	if opts.Stride <= 0 {
		opts.Stride = DefaultStride
	}
	if opts.Max <= 0 {
		opts.Max = DefaultMax
	}
	if opts.Dimension <= 0 {
		opts.Dimension = vector.Dimension
	}
	return &Session{
		label:      label,
		identifier: identifier,
		opts:       opts,
		samples:    make([][]uint8, 0, opts.Max),
	}
}

// Offer presents one detected-face sample. It reports whether the sample was kept.
func (s *Session) Offer(sample []uint8) bool {
	if s.Done() {
		return false
	}
	pos := s.offered
	s.offered++
	if pos%s.opts.Stride != 0 {
		return false
	}

	normalized, repair := vector.Normalize(sample, s.opts.Dimension)
	if repair.Changed() {
		logger.Info("normalized enrollment sample",
			logger.LoggerOptions{Key: "action", Data: string(repair.Action)},
			logger.LoggerOptions{Key: "from", Data: repair.Original},
			logger.LoggerOptions{Key: "to", Data: repair.Final},
		)
	} else {
		// Callers may reuse their buffer.
		normalized = append([]uint8(nil), sample...)
	}
	s.samples = append(s.samples, normalized)
	return true
}

// Stop ends the session early. Samples accepted so far are kept.
func (s *Session) Stop() { s.stopped = true }

// Done reports whether the cap was reached or Stop was called.
func (s *Session) Done() bool {
	return s.stopped || len(s.samples) >= s.opts.Max
}

// Accepted returns the number of samples kept so far.
func (s *Session) Accepted() int { return len(s.samples) }

// Max returns the sample cap.
func (s *Session) Max() int { return s.opts.Max }

// Batch packages the accepted samples.
func (s *Session) Batch() Batch {
	return Batch{
		Label:      s.label,
		Identifier: s.identifier,
		Dimension:  s.opts.Dimension,
		Samples:    s.samples,
	}
}

// Run drives loop until the session is complete, stop fires, or the feed ends.
// onAccept, if set, is called with the running total after every kept sample.
func (s *Session) Run(ctx context.Context, loop *pipeline.Loop, smp *sampler.Sampler, stop <-chan struct{}, onAccept func(n int)) (Batch, pipeline.Stats, error) {
	stats, err := loop.Run(ctx, stop, func(frame types.Frame, boxes []image.Rectangle) bool {
		for _, box := range boxes {
			sample, err := smp.Sample(frame.Image, box)
			if err != nil {
				logger.Debug("skipping face", logger.LoggerOptions{Key: "error", Data: err.Error()})
				continue
			}
			if s.Offer(sample) && onAccept != nil {
				onAccept(s.Accepted())
			}
			if s.Done() {
				return true
			}
		}
		return false
	})
	s.Stop()
	return s.Batch(), stats, err
}
