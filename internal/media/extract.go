package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
)

// MaxExtractedText bounds the text kept per document.
const MaxExtractedText = 100_000

// ErrNotExtractable is returned for content types without a text layer.
var ErrNotExtractable = errors.New("content type has no extractable text")

var extractable = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.oasis.opendocument.text":                                 true,
	"text/rtf":        true,
	"application/rtf": true,
}

// DocconvExtractor extracts text with code.sajari.com/docconv. PDF and
// legacy Word formats need the poppler and wv tools on the host.
type DocconvExtractor struct{}

// NewTextExtractor creates a docconv-backed extractor.
func NewTextExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

// Extract returns the normalised plain text of the document in r.
func (DocconvExtractor) Extract(ctx context.Context, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contentType == "text/plain" {
		b, err := io.ReadAll(io.LimitReader(r, MaxExtractedText*4))
		if err != nil {
			return "", fmt.Errorf("read text: %w", err)
		}
		return normalizeText(string(b)), nil
	}
	if !extractable[contentType] {
		return "", ErrNotExtractable
	}
	res, err := docconv.Convert(r, contentType, true)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", contentType, err)
	}
	return normalizeText(res.Body), nil
}

func normalizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > MaxExtractedText {
		s = s[:MaxExtractedText]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return s
}
