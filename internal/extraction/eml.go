package extraction

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// extractEmail parses an RFC 5322 message and returns its plain text body,
// prefixed with the headers that carry reconcilable signal (From, Subject,
// Date). Multipart messages contribute every text/plain part.
func extractEmail(data []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var sb strings.Builder
	for _, header := range []string{"From", "To", "Subject", "Date"} {
		if v := msg.Header.Get(header); v != "" {
			sb.WriteString(header)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}

	body, err := emailBody(msg)
	if err != nil {
		return "", err
	}

	sb.WriteString(body)
	return sb.String(), nil
}

func emailBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		return readAll(msg.Body)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return readAll(msg.Body)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("%w: multipart message without boundary", ErrUnreadable)
	}

	var sb strings.Builder
	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
		}

		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil || partType != "text/plain" {
			continue
		}

		text, err := readAll(part)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return string(data), nil
}
