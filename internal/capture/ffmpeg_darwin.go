//go:build darwin

package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// platformInputArgs builds the ffmpeg input flags for AVFoundation.
// Simplified attempts drop the resolution request and let the device pick.
func platformInputArgs(c Constraints) []string {
	device := c.DeviceID
	if device == "" {
		device = "default"
	}
	args := []string{"-f", "avfoundation", "-framerate", "30"}
	if !c.Simplified && c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	return append(args, "-i", device)
}

var avDeviceLine = regexp.MustCompile(`\[(\d+)\]\s+(.+)$`)

// ListDevices parses the AVFoundation device listing that ffmpeg prints
// to stderr.
func (s *FFmpegSource) ListDevices(ctx context.Context) ([]Device, error) {
	cmd := exec.CommandContext(ctx, s.binary, "-f", "avfoundation", "-list_devices", "true", "-i", "")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Run() // exits nonzero; the listing is printed to stderr

	return parseAVDeviceListing(stderr.String()), nil
}

func parseAVDeviceListing(listing string) []Device {
	var devices []Device
	inVideo := false
	for _, line := range strings.Split(listing, "\n") {
		switch {
		case strings.Contains(line, "video devices"):
			inVideo = true
		case strings.Contains(line, "audio devices"):
			inVideo = false
		case inVideo:
			if m := avDeviceLine.FindStringSubmatch(line); m != nil {
				devices = append(devices, Device{ID: m[1], Label: strings.TrimSpace(m[2])})
			}
		}
	}
	return devices
}
