// Package pdf renders HTML documents and web pages to PDF through a
// Gotenberg instance.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docsmith/backend/services"
	"go.uber.org/zap"
)

const (
	htmlConvertPath = "/forms/chromium/convert/html"
	urlConvertPath  = "/forms/chromium/convert/url"

	defaultTimeout = 30 * time.Second
)

// Service proxies document rendering requests to Gotenberg.
type Service struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService creates a new PDF rendering service
func NewService(baseURL string, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// RenderHTML converts an HTML document to PDF. The content is submitted to
// the renderer as the page's index file.
func (s *Service) RenderHTML(ctx context.Context, content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, services.ErrEmptyContent
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, services.WrapInternal("failed to build render request", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, services.WrapInternal("failed to build render request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.WrapInternal("failed to build render request", err)
	}

	return s.convert(ctx, htmlConvertPath, &body, writer.FormDataContentType())
}

// RenderURL converts the page at the given URL to PDF.
func (s *Service) RenderURL(ctx context.Context, target string) ([]byte, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, services.ErrInvalidURL
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("url", target); err != nil {
		return nil, services.WrapInternal("failed to build render request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.WrapInternal("failed to build render request", err)
	}

	return s.convert(ctx, urlConvertPath, &body, writer.FormDataContentType())
}

func (s *Service) convert(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return nil, services.WrapInternal("failed to create render request", err)
	}
	req.Header.Set("Content-Type", contentType)

	startTime := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("renderer request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, services.WrapExternal("document renderer unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("renderer returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return nil, services.WrapExternal(
			fmt.Sprintf("document renderer returned status %d", resp.StatusCode), nil)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.WrapExternal("failed to read rendered document", err)
	}

	s.logger.Debug("document rendered",
		zap.String("path", path),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(startTime)))

	return pdf, nil
}
