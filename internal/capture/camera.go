// Package capture provides frame sources and face detectors for the pipeline loop.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/utils"
)

const megabyte = 1024 * 1024

// CameraOptions selects the capture device.
type CameraOptions struct {
	FFmpeg string // binary, default "ffmpeg"
	Format string // ffmpeg input driver: v4l2, avfoundation, dshow
	Device string // e.g. /dev/video0
	FPS    int
}

// FFmpegCamera streams MJPEG frames from an ffmpeg child process.
type FFmpegCamera struct {
	cmd     *utils.SafeCommand
	out     io.ReadCloser
	scanner *bufio.Scanner
	index   int
	pending []byte
}

// OpenCamera starts ffmpeg on the device and waits for the first frame, so a
// missing or busy camera is reported here rather than as an empty feed.
func OpenCamera(opts CameraOptions) (*FFmpegCamera, error) {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if err := utils.RequireBinary(opts.FFmpeg); err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "camera unavailable", err)
	}

	ffmpeg := utils.NewFFmpegCaptureCmd(opts.FFmpeg, opts.Format, opts.Device, opts.FPS)
	out, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "camera unavailable", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return nil, apperrors.New(apperrors.ResourceUnavailable, "camera unavailable", err)
	}

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	c := &FFmpegCamera{cmd: ffmpeg, out: out, scanner: scanner}
	if !scanner.Scan() {
		c.Close()
		cause := scanner.Err()
		if cause == nil {
			cause = fmt.Errorf("no frames from %s: %s", opts.Device, bytes.TrimSpace(ffmpeg.Stderr.Bytes()))
		}
		return nil, apperrors.New(apperrors.ResourceUnavailable, "cannot open camera", cause)
	}
	c.pending = append([]byte(nil), scanner.Bytes()...)
	return c, nil
}

// Read returns the next decoded frame. The scanner's buffer is reused, so the
// JPEG is decoded before the next Scan.
func (c *FFmpegCamera) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}

	var data []byte
	if c.pending != nil {
		data, c.pending = c.pending, nil
	} else {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return types.Frame{}, fmt.Errorf("camera stream: %w", err)
			}
			return types.Frame{}, io.EOF
		}
		data = c.scanner.Bytes()
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return types.Frame{}, fmt.Errorf("decode frame %d: %w", c.index, err)
	}
	f := types.Frame{Index: c.index, Image: img}
	c.index++
	return f, nil
}

// Close stops ffmpeg and releases the device.
func (c *FFmpegCamera) Close() error {
	c.out.Close() // Ensure pipe is closed to prevent leaks/zombies
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.cmd.Wait()
	return nil
}
