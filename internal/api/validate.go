package api

import (
	"fmt"
	"strings"
)

// Upload constraints shared by the capture and upload pipelines. Every
// caller rejects locally before Analyze is attempted.
const MaxUploadBytes = 10 << 20 // 10 MiB

// AllowedImageTypes lists the MIME types the backend accepts.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ValidationError is a local rejection of an image before any network
// call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// AllowedImageType reports whether mimeType is acceptable for upload.
func AllowedImageType(mimeType string) bool {
	mimeType = strings.ToLower(mimeType)
	for _, t := range AllowedImageTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// ValidateImage checks an encoded image against the shared MIME and size
// constraints. It returns a *ValidationError describing the first
// violation, or nil.
func ValidateImage(mimeType string, size int) error {
	if !AllowedImageType(mimeType) {
		return &ValidationError{Reason: "unsupported format: use JPEG, PNG, or WebP"}
	}
	if size > MaxUploadBytes {
		return &ValidationError{Reason: fmt.Sprintf("image exceeds the %d MB limit", MaxUploadBytes>>20)}
	}
	return nil
}
