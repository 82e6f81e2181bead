package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"ragchat-backend/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor converts plain text directly and hands PDFs to
// sajari/docconv. Markdown is treated as plain text.
type DocconvExtractor struct{}

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

// normalizeType maps extensions and MIME types onto a canonical kind.
func normalizeType(fileType string) string {
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "txt", "text", "md", "markdown", "text/plain", "text/markdown":
		return "text"
	case "pdf", "application/pdf":
		return "pdf"
	}
	return ""
}

func (e *DocconvExtractor) Supports(fileType string) bool {
	return normalizeType(fileType) != ""
}

func (e *DocconvExtractor) Extract(ctx context.Context, content []byte, fileType string) (string, error) {
	switch normalizeType(fileType) {
	case "text":
		if !utf8.Valid(content) {
			return "", fmt.Errorf("decode %q content: invalid UTF-8", fileType)
		}
		return string(content), nil
	case "pdf":
		res, err := docconv.Convert(bytes.NewReader(content), "application/pdf", false)
		if err != nil {
			return "", fmt.Errorf("convert pdf: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return res.Body, nil
	}
	return "", &core.UnsupportedTypeError{FileType: fileType}
}
