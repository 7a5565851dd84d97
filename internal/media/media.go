// Package media inspects and transforms uploaded files: content sniffing,
// safe file names, text extraction for search and image thumbnails.
package media

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is the number of leading bytes DetectContentType looks at.
const SniffLen = 3072

// DetectContentType returns the MIME type of data without parameters,
// e.g. "text/plain" rather than "text/plain; charset=utf-8".
func DetectContentType(data []byte) string {
	ct := mimetype.Detect(data).String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// ExtensionFor returns the canonical file extension (with dot) for a
// content type, or ".bin" when unknown.
func ExtensionFor(contentType string) string {
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

// SanitizeFilename strips path components and control characters from a
// client-supplied file name and bounds its length.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' || r == '"' {
			return -1
		}
		return r
	}, filename)
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." {
		return "file"
	}
	if len(filename) > 200 {
		ext := filepath.Ext(filename)
		if len(ext) > 20 {
			ext = ""
		}
		filename = filename[:200-len(ext)] + ext
	}
	return filename
}
