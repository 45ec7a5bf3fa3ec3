// Package media defines the upload categories, size limits and validation
// rules shared by the server and the client uploader.
package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Category classifies an uploaded file and determines its size ceiling
// and storage subdirectory.
type Category string

const (
	CategoryImage     Category = "image"
	CategoryVideo     Category = "video"
	CategoryRadiology Category = "radiology"
)

// Sentinel errors for upload validation.
var (
	ErrInvalidCategory   = errors.New("invalid category")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

const megabyte = 1024 * 1024

// maxSizes holds the per-category size ceilings in bytes.
// Ceilings are looked up, never computed.
var maxSizes = map[Category]int64{
	CategoryImage:     20 * megabyte,
	CategoryVideo:     500 * megabyte,
	CategoryRadiology: 50 * megabyte,
}

// allowedExtensions maps each category to its accepted file extensions
// (lowercase, without the leading dot).
var allowedExtensions = map[Category]map[string]bool{
	CategoryImage: {
		"jpg": true, "jpeg": true, "png": true, "gif": true,
	},
	CategoryVideo: {
		"mp4": true, "webm": true, "avi": true, "mov": true, "mkv": true,
	},
	CategoryRadiology: {
		"jpg": true, "jpeg": true, "png": true, "dcm": true, "zip": true,
	},
}

// dirNames maps each category to its storage subdirectory.
var dirNames = map[Category]string{
	CategoryImage:     "images",
	CategoryVideo:     "videos",
	CategoryRadiology: "radiology",
}

// ParseCategory converts a raw form value into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := maxSizes[c]; !ok {
		return "", fmt.Errorf("%w: %q (expected image, video or radiology)", ErrInvalidCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := maxSizes[c]
	return ok
}

// DirName returns the storage subdirectory for the category.
func (c Category) DirName() string {
	return dirNames[c]
}

// MaxSize returns the size ceiling in bytes for the category.
func (c Category) MaxSize() int64 {
	return maxSizes[c]
}

// Ext extracts the lowercase extension of name without the leading dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Validate checks a candidate upload before any disk I/O.
// It is a pure function of (size, category, filename): category must be
// known, size must not exceed the category ceiling, and the filename
// extension must be in the category's allowed set.
func Validate(sizeBytes int64, category Category, filename string) error {
	limit, ok := maxSizes[category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(category))
	}

	if sizeBytes > limit {
		return fmt.Errorf("%w: %s files may not exceed %dMB", ErrFileTooLarge, category, limit/megabyte)
	}

	ext := Ext(filename)
	if !allowedExtensions[category][ext] {
		return fmt.Errorf("%w: %q is not accepted for %s uploads", ErrUnsupportedFormat, ext, category)
	}

	return nil
}

// InferCategory determines the category for a candidate file from its
// declared MIME type and filename. Radiology takes precedence for .dcm and
// .zip files (or DICOM/zip MIME types), video matches by MIME prefix, and
// anything else falls back to image. The second return value is false when
// the file is acceptable under no category.
func InferCategory(mimeType, filename string) (Category, bool) {
	ext := Ext(filename)
	mt := strings.ToLower(mimeType)

	switch {
	case ext == "dcm" || ext == "zip",
		mt == "application/dicom", mt == "application/zip", mt == "application/x-zip-compressed":
		return CategoryRadiology, true
	case strings.HasPrefix(mt, "video/"):
		if allowedExtensions[CategoryVideo][ext] {
			return CategoryVideo, true
		}
		return "", false
	case strings.HasPrefix(mt, "image/"):
		if allowedExtensions[CategoryImage][ext] {
			return CategoryImage, true
		}
		return "", false
	}
	return "", false
}

// ResolveFileType returns the specific file type for a stored upload.
// An explicit hint takes precedence; otherwise the type is inferred from
// the filename extension (".dcm" maps to "dicom").
func ResolveFileType(hint, filename string) string {
	if hint != "" {
		return strings.ToLower(strings.TrimSpace(hint))
	}
	ext := Ext(filename)
	if ext == "dcm" {
		return "dicom"
	}
	return ext
}
