// Package message assembles outbound MIME messages.
package message

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

const (
	ctMixed       = "multipart/mixed"
	ctAlternative = "multipart/alternative"
	ctPlain       = "text/plain"
	ctHTML        = "text/html"
	ctOctetStream = "application/octet-stream"
)

// Builder builds transport-encoded messages
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new message builder
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build assembles the message described by req and encodes it into Raw.
// With attachments the root is multipart/mixed holding an alternative part
// and one part per file; otherwise the single body is still wrapped in a
// multipart/alternative root.
func (b *Builder) Build(req core.BuildRequest) (*core.OutboundMessage, error) {
	if strings.TrimSpace(req.To) == "" {
		return nil, errors.New("message: recipient is required")
	}

	files, err := loadAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}

	var root *enmime.Part
	if len(files) > 0 {
		root = multipart(ctMixed)
		alt := multipart(ctAlternative)
		if req.BodyText != "" {
			alt.AddChild(textPart(ctPlain, req.BodyText))
		}
		if req.BodyHTML != "" {
			alt.AddChild(textPart(ctHTML, req.BodyHTML))
		}
		root.AddChild(alt)
		for _, f := range files {
			root.AddChild(f)
		}
	} else {
		root = multipart(ctAlternative)
		if req.BodyHTML != "" {
			root.AddChild(textPart(ctHTML, req.BodyHTML))
		} else {
			root.AddChild(textPart(ctPlain, req.BodyText))
		}
	}

	root.Header.Set("MIME-Version", "1.0")
	root.Header.Set("To", sanitizeHeader(req.To))
	root.Header.Set("Subject", sanitizeHeader(req.Subject))
	if req.Sender != "" {
		root.Header.Set("From", sanitizeHeader(req.Sender))
	}
	if req.Cc != "" {
		root.Header.Set("Cc", sanitizeHeader(req.Cc))
	}
	if req.Bcc != "" {
		root.Header.Set("Bcc", sanitizeHeader(req.Bcc))
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, fmt.Errorf("message: encoding failed: %w", err)
	}

	b.logger.Debug("Built message",
		zap.String("to", req.To),
		zap.Int("attachments", len(files)),
		zap.Int("size", buf.Len()))

	return &core.OutboundMessage{
		To:          req.To,
		Subject:     req.Subject,
		BodyHTML:    req.BodyHTML,
		BodyText:    req.BodyText,
		Cc:          req.Cc,
		Bcc:         req.Bcc,
		Attachments: req.Attachments,
		Sender:      req.Sender,
		Raw:         base64.URLEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Decode returns the RFC 822 bytes of an encoded message
func Decode(raw string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("message: invalid raw payload: %w", err)
	}
	return data, nil
}

// loadAttachments reads every path before any part is built so a missing
// file aborts the whole message
func loadAttachments(paths []string) ([]*enmime.Part, error) {
	var parts []*enmime.Part
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", core.ErrAttachmentNotFound, path)
			}
			return nil, fmt.Errorf("message: reading attachment %s: %w", path, err)
		}

		part := enmime.NewPart(guessContentType(path))
		part.Disposition = "attachment"
		part.FileName = filepath.Base(path)
		part.Content = content
		parts = append(parts, part)
	}
	return parts, nil
}

// guessContentType infers a media type from the file extension
func guessContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ctOctetStream
	}
	mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil || mediaType == "" {
		return ctOctetStream
	}
	return mediaType
}

func multipart(contentType string) *enmime.Part {
	p := enmime.NewPart(contentType)
	if p.Header == nil {
		p.Header = make(textproto.MIMEHeader)
	}
	p.Boundary = "agent-" + uuid.NewString()
	return p
}

func textPart(contentType, body string) *enmime.Part {
	p := enmime.NewPart(contentType)
	p.Charset = "utf-8"
	p.Content = []byte(normalizeBody(body))
	return p
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.ReplaceAll(body, "\n", "\r\n")
}
