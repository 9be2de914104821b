//go:build !darwin

package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDevicesFromGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video2", "video0", "media0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	devices, err := devicesFromGlob(filepath.Join(dir, "video*"))
	if err != nil {
		t.Fatalf("devicesFromGlob: %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}
	if devices[0].ID != filepath.Join(dir, "video0") || devices[1].ID != filepath.Join(dir, "video2") {
		t.Errorf("devices not sorted by node: %+v", devices)
	}
	for _, d := range devices {
		if d.Label != d.ID {
			t.Errorf("label = %q, want the node path %q", d.Label, d.ID)
		}
	}
}

func TestDevicesFromGlob_NoNodes(t *testing.T) {
	devices, err := devicesFromGlob(filepath.Join(t.TempDir(), "video*"))
	if err != nil {
		t.Fatalf("devicesFromGlob: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("devices = %d, want none", len(devices))
	}
}
