package constants

import "strings"

// Formats for documents accepted by the extraction pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// PDFMagic is the byte signature every PDF starts with.
const PDFMagic = "%PDF"

// MimePDF is the mime type sent to the vision provider for PDF uploads.
const MimePDF = "application/pdf"

// AllowedExtensions holds the default allowed file extensions for batch ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForImage maps the format name reported by image.DecodeConfig to a mime type.
func MimeForImage(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
