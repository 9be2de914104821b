// Package capture turns a camera stream or a user-chosen file into a
// validated, upload-ready image with a local preview.
package capture

import (
	"context"
	"errors"
	"image"
)

// Constraints describe how a camera stream should be opened. Simplified
// is set on the automatic watchdog retry: sources should then ignore the
// resolution hints and open the device with its defaults.
type Constraints struct {
	DeviceID   string
	Width      int
	Height     int
	Simplified bool
}

// Frame is one decoded video frame.
type Frame struct {
	Image  image.Image
	Width  int
	Height int
}

// Stream is a live camera feed. Frames delivers decoded frames until the
// stream is closed; Close releases the underlying device and must be safe
// to call more than once.
type Stream interface {
	Frames() <-chan Frame
	Close() error
}

// CameraSource abstracts the platform camera so the pipeline can be
// tested with fakes. Open blocks until the device is acquired or ctx is
// cancelled.
type CameraSource interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Device identifies one attached camera.
type Device struct {
	ID    string
	Label string
}

// DeviceLister enumerates attached cameras, for sources that can.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]Device, error)
}

// Sentinel errors for the distinct, non-fatal camera failure modes.
var (
	// ErrNoCamera means no capture device or capture tooling is available.
	ErrNoCamera = errors.New("no camera available")
	// ErrAccessDenied means the device exists but could not be opened.
	ErrAccessDenied = errors.New("camera access denied")
	// ErrStreamStuck means the device was acquired but never delivered a
	// usable frame, even after the simplified retry.
	ErrStreamStuck = errors.New("camera stream is stuck or muted")
	// ErrNotReady means capture was attempted before the stream latched ready.
	ErrNotReady = errors.New("camera is not ready yet")
)
