package constants

import "strings"

// ImageFormats holds the recognised card image formats.
var ImageFormats = []string{"JPEG", "PNG", "HEIC", "BMP", "TIFF", "WEBP"}

// AllowedExtensions holds the default allowed file extensions for card ingestion.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is an accepted card image.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// IsHEICExt reports whether the extension needs an external HEIC converter.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// MapExtToFormat maps a normalized extension to one of ImageFormats, or "" if unknown.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg":
		return "JPEG"
	case "png":
		return "PNG"
	case "heic", "heif":
		return "HEIC"
	case "bmp":
		return "BMP"
	case "tif", "tiff":
		return "TIFF"
	case "webp":
		return "WEBP"
	}
	return ""
}
