package extraction

import (
	"context"
	"net/http"
	"strings"
)

//go:generate mockgen -source=generator.go -destination=generator_mock.go -package=extraction

// Generator produces free-form text from a prompt and optional inline media.
type Generator interface {
	Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error)
}

// Attachment is inline binary content sent alongside a prompt.
type Attachment struct {
	Data     []byte
	MIMEType string
}

// ImageAttachment builds an attachment for an uploaded image. The declared
// content type is trusted when it names an image; otherwise the bytes are
// sniffed. Non-image payloads are rejected.
func ImageAttachment(data []byte, declared string) (Attachment, error) {
	if len(data) == 0 {
		return Attachment{}, &AnalysisError{Code: ErrInvalidImage, Message: "image is empty"}
	}

	mimeType := strings.TrimSpace(strings.ToLower(declared))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = detectImageMimeType(data)
	}
	if mimeType == "" {
		return Attachment{}, &AnalysisError{Code: ErrInvalidImage, Message: "unsupported image format"}
	}
	return Attachment{Data: data, MIMEType: mimeType}, nil
}

// detectImageMimeType sniffs the content type, returning "" for non-images.
func detectImageMimeType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if !strings.HasPrefix(ct, "image/") {
		return ""
	}
	return ct
}
