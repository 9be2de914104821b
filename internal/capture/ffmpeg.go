package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// FFmpegSource captures frames by running ffmpeg against the platform
// camera backend (v4l2 on Linux, avfoundation on macOS) and reading an
// MJPEG stream from its stdout.
type FFmpegSource struct {
	binary string
}

// NewFFmpegSource creates a source using the given ffmpeg binary
// ("ffmpeg" when empty).
func NewFFmpegSource(binary string) *FFmpegSource {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegSource{binary: binary}
}

// Open starts ffmpeg and begins decoding frames. Missing tooling maps to
// ErrNoCamera, a failed device open to ErrAccessDenied.
func (s *FFmpegSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	bin, err := exec.LookPath(s.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNoCamera, s.binary)
	}

	args := platformInputArgs(c)
	args = append(args, "-f", "mjpeg", "-q:v", "2", "-")

	cmd := exec.CommandContext(ctx, bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("wiring ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	st := &ffmpegStream{
		cmd:    cmd,
		frames: make(chan Frame, 1),
	}
	go st.read(stdout)
	return st, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	frames chan Frame

	closeOnce sync.Once
}

func (s *ffmpegStream) Frames() <-chan Frame {
	return s.frames
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		go s.cmd.Wait() // reap without blocking the caller
	})
	return nil
}

// read splits stdout into JPEG frames on SOI/EOI markers and decodes
// them. Undecodable frames are skipped.
func (s *ffmpegStream) read(r io.Reader) {
	defer close(s.frames)

	br := bufio.NewReaderSize(r, 1<<20)
	var buf bytes.Buffer
	inFrame := false
	prev := byte(0)

	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}

		if !inFrame {
			if prev == 0xFF && b == 0xD8 { // SOI
				inFrame = true
				buf.Reset()
				buf.WriteByte(0xFF)
				buf.WriteByte(0xD8)
			}
			prev = b
			continue
		}

		buf.WriteByte(b)
		if prev == 0xFF && b == 0xD9 { // EOI
			s.emit(buf.Bytes())
			inFrame = false
		}
		prev = b
	}
}

func (s *ffmpegStream) emit(data []byte) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("skipping undecodable frame", "error", err)
		return
	}
	bounds := img.Bounds()
	frame := Frame{Image: img, Width: bounds.Dx(), Height: bounds.Dy()}

	// Keep only the most recent frame; drop if the consumer is behind.
	select {
	case s.frames <- frame:
	default:
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
}
