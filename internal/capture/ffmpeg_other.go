//go:build !darwin

package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
)

// platformInputArgs builds the ffmpeg input flags for Video4Linux.
// Simplified attempts drop the resolution request and let the driver pick.
func platformInputArgs(c Constraints) []string {
	device := c.DeviceID
	if device == "" {
		device = "/dev/video0"
	}
	args := []string{"-f", "v4l2"}
	if !c.Simplified && c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	return append(args, "-i", device)
}

// videoDevicePattern matches the Video4Linux capture nodes.
const videoDevicePattern = "/dev/video*"

// ListDevices enumerates /dev/video* nodes.
func (s *FFmpegSource) ListDevices(_ context.Context) ([]Device, error) {
	return devicesFromGlob(videoDevicePattern)
}

func devicesFromGlob(pattern string) ([]Device, error) {
	nodes, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(nodes)

	devices := make([]Device, 0, len(nodes))
	for _, n := range nodes {
		devices = append(devices, Device{ID: n, Label: n})
	}
	return devices, nil
}
