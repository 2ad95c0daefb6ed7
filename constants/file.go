package constants

import "strings"

// MediaKind classifies a source file for the OCR request payload.
type MediaKind string

const (
	MediaKindImage MediaKind = "IMAGE"
	MediaKindPDF   MediaKind = "PDF"
)

// AllowedExtensions holds the file extensions accepted by the folder scan.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"webp": {},
}

// MIMETypes maps normalized extensions to the MIME type embedded in data URLs.
var MIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether the extension is in the recognized set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// KindForExt returns the media kind for a normalized extension.
// Anything that is not a PDF is treated as an image.
func KindForExt(ext string) MediaKind {
	if NormalizeExt(ext) == "pdf" {
		return MediaKindPDF
	}
	return MediaKindImage
}
