// Package tika extracts plain text from uploaded resume documents through an
// Apache Tika server. PUT /tika with Accept: text/plain returns the extracted
// text; see https://tika.apache.org/server/.
package tika

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Client is a minimal Tika HTTP client implementing domain.TextExtractor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Tika client with a default timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Extract sends the document bytes to Tika and returns sanitized plain text
// with whitespace collapsed. The content type is sniffed from the bytes, not
// trusted from the upload; anything outside the PDF/DOCX/plain-text allowlist
// is rejected.
func (c *Client) Extract(ctx domain.Context, fileName string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("op=tika.extract: %w: empty file", domain.ErrInvalidArgument)
	}
	mt := mimetype.Detect(content)
	if !allowedMIME(mt) {
		return "", fmt.Errorf("op=tika.extract: %w: unsupported file type %s (%s)", domain.ErrInvalidArgument, mt.String(), fileName)
	}

	// Plain text needs no round trip to Tika. Line structure is kept; it is
	// meaningful in a text resume.
	if mt.Is("text/plain") {
		return textx.SanitizeText(string(content)), nil
	}

	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u+"/tika", bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", mt.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("op=tika.extract: tika status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	return collapse(textx.SanitizeText(string(b))), nil
}

func allowedMIME(mt *mimetype.MIME) bool {
	return mt.Is("application/pdf") ||
		mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document") ||
		mt.Is("text/plain")
}

// collapse joins all whitespace runs into single spaces so page layout
// artifacts do not survive into the prompt.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
