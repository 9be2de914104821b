package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kalambet/rotomdex/internal/api"
)

// State is the camera pipeline's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming // device acquired, no usable frame yet
	StateReady     // frames with nonzero dimensions are arriving
	StateCaptured  // a validated still is pending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateReady:
		return "ready"
	case StateCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

// DefaultReadyTimeout is how long the readiness watchdog waits for the
// first usable frame after a successful device grant.
const DefaultReadyTimeout = 1500 * time.Millisecond

// Preferred resolution hints for the initial (non-simplified) attempt.
const (
	idealWidth  = 1280
	idealHeight = 720
)

// jpegQuality matches the encoder setting used for captured stills.
const jpegQuality = 92

// CapturedImage is an owned, encoded still plus its local preview file.
// Exactly one may be pending per pipeline; Release removes the preview
// when the image is superseded or discarded.
type CapturedImage struct {
	Data        []byte
	MIMEType    string
	Filename    string
	PreviewPath string

	ownsPreview bool
}

// Release removes the preview file if this image owns it. Safe to call
// on the zero value or repeatedly.
func (c *CapturedImage) Release() {
	if c == nil || !c.ownsPreview || c.PreviewPath == "" {
		return
	}
	if err := os.Remove(c.PreviewPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("removing preview file", "path", c.PreviewPath, "error", err)
	}
	c.PreviewPath = ""
	c.ownsPreview = false
}

// APIImage converts the capture into the client's upload shape.
func (c *CapturedImage) APIImage() api.Image {
	return api.Image{Data: c.Data, MIMEType: c.MIMEType, Filename: c.Filename}
}

// Pipeline drives one camera: enable, wait for readiness (with a bounded
// automatic retry), capture a validated still, release the device. The
// pipeline is owned by a single goroutine; it is not safe for concurrent
// use.
type Pipeline struct {
	source       CameraSource
	readyTimeout time.Duration
	previewDir   string
	deviceID     string
	width        int
	height       int

	state   State
	stream  Stream
	pending *CapturedImage

	frameMu sync.Mutex
	latest  Frame
	stop    chan struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReadyTimeout overrides the readiness watchdog delay.
func WithReadyTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.readyTimeout = d }
}

// WithPreviewDir sets where preview files are written (default: os temp dir).
func WithPreviewDir(dir string) Option {
	return func(p *Pipeline) { p.previewDir = dir }
}

// WithDeviceID pins the pipeline to a specific camera.
func WithDeviceID(id string) Option {
	return func(p *Pipeline) { p.deviceID = id }
}

// WithResolution overrides the preferred resolution for the initial
// attempt. Zero values keep the defaults.
func WithResolution(width, height int) Option {
	return func(p *Pipeline) {
		if width > 0 && height > 0 {
			p.width, p.height = width, height
		}
	}
}

// NewPipeline creates a Pipeline over the given source.
func NewPipeline(source CameraSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:       source,
		readyTimeout: DefaultReadyTimeout,
		previewDir:   os.TempDir(),
		width:        idealWidth,
		height:       idealHeight,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// State returns the pipeline's current lifecycle position.
func (p *Pipeline) State() State {
	return p.state
}

// Pending returns the captured image awaiting submission, if any.
func (p *Pipeline) Pending() *CapturedImage {
	return p.pending
}

// Enable acquires the camera and waits for it to become ready. Any prior
// stream is fully torn down first, so two live device handles can never
// coexist. If no usable frame arrives within the ready timeout the
// acquisition is retried once with simplified constraints; a second
// timeout returns ErrStreamStuck. All failures leave the pipeline idle
// and reusable.
func (p *Pipeline) Enable(ctx context.Context) error {
	p.Disable()

	constraints := Constraints{
		DeviceID: p.deviceID,
		Width:    p.width,
		Height:   p.height,
	}

	err := p.attempt(ctx, constraints)
	if errors.Is(err, ErrStreamStuck) {
		slog.Info("retrying camera with simplified constraints")
		constraints.Simplified = true
		constraints.Width, constraints.Height = 0, 0
		err = p.attempt(ctx, constraints)
	}
	if err != nil {
		p.state = StateIdle
		return err
	}
	return nil
}

// attempt opens the source and waits for the first frame with nonzero
// dimensions. Readiness is latched: once a qualifying frame is seen the
// stream is ready regardless of later frames.
func (p *Pipeline) attempt(ctx context.Context, c Constraints) error {
	p.state = StateRequesting

	stream, err := p.source.Open(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	p.state = StateStreaming

	timer := time.NewTimer(p.readyTimeout)
	defer timer.Stop()

	for {
		select {
		case frame, ok := <-stream.Frames():
			if !ok {
				stream.Close()
				return fmt.Errorf("camera stream ended before delivering a frame")
			}
			if frame.Width == 0 || frame.Height == 0 {
				continue
			}
			p.stream = stream
			p.state = StateReady
			p.setLatest(frame)
			p.stop = make(chan struct{})
			go p.pump(stream, p.stop)
			slog.Info("camera ready", "width", frame.Width, "height", frame.Height, "device", c.DeviceID, "simplified", c.Simplified)
			return nil
		case <-timer.C:
			slog.Warn("no frames within ready timeout", "timeout", p.readyTimeout, "device", c.DeviceID, "simplified", c.Simplified)
			stream.Close()
			return ErrStreamStuck
		case <-ctx.Done():
			stream.Close()
			return ctx.Err()
		}
	}
}

// pump keeps the most recent frame available for Capture.
func (p *Pipeline) pump(stream Stream, stop chan struct{}) {
	for {
		select {
		case frame, ok := <-stream.Frames():
			if !ok {
				return
			}
			if frame.Width > 0 && frame.Height > 0 {
				p.setLatest(frame)
			}
		case <-stop:
			return
		}
	}
}

func (p *Pipeline) setLatest(f Frame) {
	p.frameMu.Lock()
	p.latest = f
	p.frameMu.Unlock()
}

func (p *Pipeline) latestFrame() Frame {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()
	return p.latest
}

// Capture encodes the current frame as JPEG at native resolution,
// validates it against the shared upload constraints, writes a preview
// file derived from the accepted bytes, and releases the camera. Any
// previously pending capture is superseded and its preview removed.
func (p *Pipeline) Capture() (*CapturedImage, error) {
	if p.state != StateReady {
		return nil, ErrNotReady
	}

	frame := p.latestFrame()
	if frame.Image == nil {
		return nil, ErrNotReady
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}

	if err := api.ValidateImage("image/jpeg", buf.Len()); err != nil {
		return nil, err
	}

	previewPath, err := p.writePreview(buf.Bytes())
	if err != nil {
		return nil, err
	}

	// Release the device as soon as a still is accepted.
	p.Disable()

	if p.pending != nil {
		p.pending.Release()
	}
	p.pending = &CapturedImage{
		Data:        buf.Bytes(),
		MIMEType:    "image/jpeg",
		Filename:    "capture.jpg",
		PreviewPath: previewPath,
		ownsPreview: true,
	}
	p.state = StateCaptured
	return p.pending, nil
}

func (p *Pipeline) writePreview(data []byte) (string, error) {
	f, err := os.CreateTemp(p.previewDir, "rotomdex-preview-*.jpg")
	if err != nil {
		return "", fmt.Errorf("creating preview file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing preview file: %w", err)
	}
	return f.Name(), nil
}

// Disable stops the stream and releases the device. Pending captures are
// kept; call Reset to discard everything.
func (p *Pipeline) Disable() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	if p.state != StateCaptured {
		p.state = StateIdle
	}
}

// Reset discards any pending capture, releases its preview, and returns
// the pipeline to idle so the camera can be re-enabled (retake).
func (p *Pipeline) Reset() {
	p.Disable()
	if p.pending != nil {
		p.pending.Release()
		p.pending = nil
	}
	p.state = StateIdle
}
