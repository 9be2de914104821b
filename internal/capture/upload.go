package capture

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/rotomdex/internal/api"
)

// extMIME maps known image extensions to their MIME type, preferred over
// content sniffing when the extension is recognized.
var extMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// DetectMIME determines the MIME type of an image file from its
// extension, falling back to content sniffing.
func DetectMIME(path string, data []byte) string {
	if mt, ok := extMIME[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return http.DetectContentType(data)
}

// FromFile builds a CapturedImage from a user-chosen file, applying the
// same MIME and size validation as the camera pipeline. The file itself
// serves as the preview, so Release never deletes it.
func FromFile(path string) (*CapturedImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	// Reject oversized files before pulling them into memory.
	if info.Size() > api.MaxUploadBytes {
		return nil, &api.ValidationError{Reason: fmt.Sprintf("image exceeds the %d MB limit", api.MaxUploadBytes>>20)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType := DetectMIME(path, data)
	if err := api.ValidateImage(mimeType, len(data)); err != nil {
		return nil, err
	}

	return &CapturedImage{
		Data:        data,
		MIMEType:    mimeType,
		Filename:    filepath.Base(path),
		PreviewPath: path,
	}, nil
}
