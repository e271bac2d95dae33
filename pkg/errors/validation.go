package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateSnapshotPath validates a snapshot file path supplied on the command
// line or over the API.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 1024 characters
//   - A recognized snapshot extension (.json, .yaml, .yml)
func ValidateSnapshotPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "snapshot path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "snapshot path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "snapshot path contains invalid characters")
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return New(ErrCodeInvalidPath, "unsupported snapshot extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// ValidateFormat checks that format is one of the allowed output formats.
func ValidateFormat(format string, allowed map[string]bool) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if !allowed[format] {
		return New(ErrCodeInvalidFormat, "unsupported format: %s", format)
	}
	return nil
}

// ValidateDimensions checks a drawing surface size.
// Surfaces larger than 16384 pixels on either axis are rejected to bound
// memory use of offscreen rendering.
func ValidateDimensions(width, height float64) error {
	const maxSide = 16384
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidInput, "surface size must be positive, got %gx%g", width, height)
	}
	if width > maxSide || height > maxSide {
		return New(ErrCodeInvalidInput, "surface size %gx%g exceeds %d pixels", width, height, maxSide)
	}
	return nil
}
