package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/utils" // Using the SafeCommand wrapper
)

// DefaultReadyTimeout bounds how long the child may take to import OpenCV and load the cascade.
const DefaultReadyTimeout = 30 * time.Second

// Options locates the detector script and tunes the Haar cascade.
type Options struct {
	Python       string
	Script       string
	Cascade      string
	ScaleFactor  float64
	MinNeighbors int
	ReadyTimeout time.Duration
}

// DetectorWorker runs an OpenCV Haar cascade in a Python child process.
// Frames go out on stdin; boxes come back on a side-channel pipe (FD 3).
type DetectorWorker struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	mu sync.Mutex
}

func NewDetectorWorker(opts Options) (*DetectorWorker, error) {
	if _, err := os.Stat(opts.Cascade); err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "cascade file not found", err)
	}
	if _, err := os.Stat(opts.Script); err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "detector script not found", err)
	}
	if opts.Python == "" {
		opts.Python = "python3"
	}

	// 1. Initialize the SafeCommand
	py := utils.NewSafeCommand(opts.Python, "-u", opts.Script,
		"--cascade", opts.Cascade,
		"--scale-factor", strconv.FormatFloat(opts.ScaleFactor, 'f', -1, 64),
		"--min-neighbors", strconv.Itoa(opts.MinNeighbors),
	)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, apperrors.New(apperrors.ResourceUnavailable, "detector failed to start", err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	dw := &DetectorWorker{
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
	}

	// 2. The child answers once with an empty detection when the cascade is loaded.
	// Anything else means every later frame would fail too.
	if err := dw.awaitReady(opts.ReadyTimeout); err != nil {
		return nil, err
	}
	return dw, nil
}

func (w *DetectorWorker) awaitReady(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}

	done := make(chan error, 1)
	go func() {
		resp, err := w.readReply()
		if err == nil {
			_, err = parseResponse(resp)
		}
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("no ready reply within %s", timeout)
	}
	if err == nil {
		return nil
	}

	w.abort()
	msg := "detector failed to initialise"
	if logs := tail(w.Cmd.Stderr.String(), 2048); logs != "" {
		msg += ": " + logs
	}
	return apperrors.New(apperrors.ResourceUnavailable, msg, err)
}

// abort kills the child and releases the pipes. Stderr is complete afterwards.
func (w *DetectorWorker) abort() {
	if w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
	w.Stdin.Close()
	w.Cmd.Wait()
	w.DataPipe.Close()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// Communicate sends one length-prefixed request and returns the response body.
func (w *DetectorWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	return w.readReply()
}

func (w *DetectorWorker) readReply() ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err // A crashed child surfaces here as EOF
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// DetectJPEG runs detection on an encoded frame.
// Response: [Status:0] [NumFaces] [x y w h]... or [Status:1] [MsgLen] [Msg].
func (w *DetectorWorker) DetectJPEG(data []byte) ([]image.Rectangle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	resp, err := w.Communicate(data)
	if err != nil {
		return nil, fmt.Errorf("detector io: %w", err)
	}
	return parseResponse(resp)
}

// Detect satisfies pipeline.Detector.
func (w *DetectorWorker) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return w.DetectJPEG(buf.Bytes())
}

func parseResponse(resp []byte) ([]image.Rectangle, error) {
	r := bytes.NewReader(resp)

	status, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("empty detector response")
	}
	if status != 0 {
		var msgLen uint32
		if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil {
			return nil, fmt.Errorf("malformed detector error: %w", err)
		}
		msg := make([]byte, msgLen)
		if _, err := io.ReadFull(r, msg); err != nil {
			return nil, fmt.Errorf("malformed detector error: %w", err)
		}
		return nil, fmt.Errorf("python detector error: %s", msg)
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("malformed face count: %w", err)
	}
	boxes := make([]image.Rectangle, 0, n)
	for i := uint32(0); i < n; i++ {
		var b [4]int32 // x, y, w, h
		if err := binary.Read(r, binary.BigEndian, &b); err != nil {
			return nil, fmt.Errorf("malformed box %d: %w", i, err)
		}
		boxes = append(boxes, image.Rect(int(b[0]), int(b[1]), int(b[0]+b[2]), int(b[1]+b[3])))
	}
	return boxes, nil
}

func (w *DetectorWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
