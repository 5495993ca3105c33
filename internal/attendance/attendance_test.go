package attendance

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/sampler"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/vector"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 14, 5, 9, 0, time.Local)
}

func flat(v uint8) []uint8 {
	out := make([]uint8, vector.Dimension)
	for i := range out {
		out[i] = v
	}
	return out
}

// aliceBob has Alice at grey 20 and Bob at grey 220.
func aliceBob() *gallery.Gallery {
	return &gallery.Gallery{Dimension: vector.Dimension, Entries: []gallery.Entry{
		{Vector: flat(20), Label: "Alice", Identifier: "101"},
		{Vector: flat(220), Label: "Bob", Identifier: "102"},
	}}
}

func greyFrame(idx int, v uint8) types.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return types.Frame{Index: idx, Image: img}
}

func TestRecord(t *testing.T) {
	r := NewRecorder(aliceBob(), fixedClock)

	tests := []struct {
		label string
		want  types.AttendanceRecord
	}{
		{"Bob", types.AttendanceRecord{Name: "Bob", EnrollmentNo: "102", Timestamp: "14:05:09"}},
		{"Carol", types.AttendanceRecord{Name: "Carol", EnrollmentNo: UnknownIdentifier, Timestamp: "14:05:09"}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := r.Record(tt.label); got != tt.want {
				t.Errorf("Record() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewSessionEmptyGallery(t *testing.T) {
	_, err := NewSession(&gallery.Gallery{}, nil, fixedClock)
	if !errors.Is(err, apperrors.ErrEmptyGallery) {
		t.Errorf("expected EmptyGalleryError, got %v", err)
	}
}

// script replays frames with their detections.
type script struct {
	frames []types.Frame
	boxes  [][]image.Rectangle
	i      int
}

func (s *script) Read(ctx context.Context) (types.Frame, error) {
	if s.i >= len(s.frames) {
		return types.Frame{}, io.EOF
	}
	s.i++
	return s.frames[s.i-1], nil
}

func (s *script) Close() error { return nil }

func (s *script) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	return s.boxes[s.i-1], nil
}

func run(t *testing.T, sc *script) types.AttendanceResult {
	t.Helper()
	sess, err := NewSession(aliceBob(), sampler.Default(), fixedClock)
	if err != nil {
		t.Fatal(err)
	}
	res, _, err := sess.Run(context.Background(), &pipeline.Loop{Source: sc, Detector: sc}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRunProbeClosestToBob(t *testing.T) {
	face := image.Rect(10, 10, 60, 60)
	res := run(t, &script{
		frames: []types.Frame{greyFrame(0, 200)},
		boxes:  [][]image.Rectangle{{face}},
	})

	if res.Status != types.StatusSuccess || res.Attendance == nil {
		t.Fatalf("result = %+v", res)
	}
	want := types.AttendanceRecord{Name: "Bob", EnrollmentNo: "102", Timestamp: "14:05:09"}
	if *res.Attendance != want {
		t.Errorf("attendance = %+v, want %+v", *res.Attendance, want)
	}
}

func TestRunNoDetection(t *testing.T) {
	res := run(t, &script{
		frames: []types.Frame{greyFrame(0, 200), greyFrame(1, 20), greyFrame(2, 90)},
		boxes:  [][]image.Rectangle{nil, nil, nil},
	})
	if res.Status != types.StatusNoDetection || res.Attendance != nil {
		t.Errorf("result = %+v, want no_detection", res)
	}
}

func TestRunLastCandidateWins(t *testing.T) {
	// Left half dark, right half bright: two boxes in one frame match different people.
	split := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			v := uint8(20)
			if x >= 50 {
				v = 220
			}
			split.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	left, right := image.Rect(0, 0, 50, 50), image.Rect(50, 0, 100, 50)

	tests := []struct {
		name string
		sc   *script
		want string
	}{
		{
			name: "Within a frame",
			sc: &script{
				frames: []types.Frame{{Index: 0, Image: split}},
				boxes:  [][]image.Rectangle{{right, left}},
			},
			want: "Alice",
		},
		{
			name: "Across frames",
			sc: &script{
				frames: []types.Frame{greyFrame(0, 20), greyFrame(1, 220), greyFrame(2, 50)},
				boxes:  [][]image.Rectangle{{left}, {left}, nil},
			},
			want: "Bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.sc)
			if res.Attendance == nil || res.Attendance.Name != tt.want {
				t.Errorf("result = %+v, want %s", res, tt.want)
			}
		})
	}
}
