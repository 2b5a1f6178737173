// Package eml converts saved email messages, such as reported phishing
// samples and alert notifications, into text. Headers are kept so the
// sanitizer can redact addresses.
package eml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/custodia-labs/whis/internal/normalisers"
	"github.com/custodia-labs/whis/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ normalisers.Normaliser = (*Normaliser)(nil)

// Normaliser handles RFC 822 messages.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".eml"}
}

// Normalise uses the subject as title and renders the headers followed by the body.
func (n *Normaliser) Normalise(_ string, data []byte) (*normalisers.Result, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Body)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			content.WriteString(h + ": " + v + "\n")
		}
	}
	content.WriteString("\n")
	content.WriteString(strings.TrimSpace(body))

	return &normalisers.Result{
		Title: subject,
		Text:  strings.TrimSpace(content.String()),
	}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody returns the text of a part. Plain text is preferred over HTML
// in multipart messages; attachments are ignored.
func extractBody(contentType string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(r, params["boundary"])
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if mediaType == "text/html" {
		return html.ToText(string(body)), nil
	}
	return string(body), nil
}

func extractMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", errors.New("multipart message without boundary")
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}
		if part.FileName() != "" {
			part.Close()
			continue
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		switch {
		case mediaType == "" || mediaType == "text/plain" || mediaType == "text/html" ||
			strings.HasPrefix(mediaType, "multipart/"):
			text, err := extractBody(part.Header.Get("Content-Type"), part)
			part.Close()
			if err != nil {
				return "", err
			}
			if mediaType == "text/html" {
				htmlParts = append(htmlParts, text)
			} else if text != "" {
				textParts = append(textParts, text)
			}
		default:
			part.Close()
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}
