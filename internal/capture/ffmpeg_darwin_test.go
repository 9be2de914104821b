//go:build darwin

package capture

import "testing"

const avListing = `[AVFoundation indev @ 0x7f8] AVFoundation video devices:
[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7f8] [1] Capture screen 0
[AVFoundation indev @ 0x7f8] AVFoundation audio devices:
[AVFoundation indev @ 0x7f8] [0] MacBook Pro Microphone
`

func TestParseAVDeviceListing(t *testing.T) {
	devices := parseAVDeviceListing(avListing)

	if len(devices) != 2 {
		t.Fatalf("devices = %d, want the 2 video devices", len(devices))
	}
	if devices[0].ID != "0" || devices[0].Label != "FaceTime HD Camera" {
		t.Errorf("device 0 = %+v", devices[0])
	}
	if devices[1].ID != "1" || devices[1].Label != "Capture screen 0" {
		t.Errorf("device 1 = %+v", devices[1])
	}
}

func TestParseAVDeviceListing_Empty(t *testing.T) {
	if devices := parseAVDeviceListing(""); len(devices) != 0 {
		t.Errorf("devices = %d, want none", len(devices))
	}
}
