package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/docsmith/backend/middleware"
	"github.com/docsmith/backend/services"
	"github.com/docsmith/backend/utils"
	"go.uber.org/zap"
)

// maxDocumentSize caps the accepted HTML payload at 10 MiB.
const maxDocumentSize = 10 << 20

// RenderURLRequest represents a request to render a web page to PDF
type RenderURLRequest struct {
	URL string `validate:"required,url"`
}

// Renderer defines the document rendering operations the handlers depend on
type Renderer interface {
	// RenderHTML converts an HTML document to PDF
	RenderHTML(ctx context.Context, content []byte) ([]byte, error)

	// RenderURL converts the page at the given URL to PDF
	RenderURL(ctx context.Context, target string) ([]byte, error)
}

// PDFHandler handles document rendering HTTP requests
type PDFHandler struct {
	renderer Renderer
	logger   *zap.Logger
}

// NewPDFHandler creates a new PDFHandler
func NewPDFHandler(renderer Renderer, logger *zap.Logger) *PDFHandler {
	return &PDFHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// HandleRenderHTML handles POST /api/pdf/generate. The request body is the
// HTML document to render.
func (h *PDFHandler) HandleRenderHTML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	content, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize+1))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Failed to read request body", nil)
		return
	}
	if len(content) == 0 {
		HandleServiceError(w, services.ErrEmptyContent, h.logger)
		return
	}
	if len(content) > maxDocumentSize {
		_ = utils.WriteBadRequest(w, "Document exceeds maximum size", nil)
		return
	}

	pdf, err := h.renderer.RenderHTML(ctx, content)
	if err != nil {
		h.logger.Warn("html rendering failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("rendered html document",
		zap.String("request_id", requestID),
		zap.Int("bytes", len(pdf)))

	_ = utils.WritePDF(w, "document.pdf", pdf)
}

// HandleRenderURL handles POST /api/pdf/generate-from-url. The target page is given
// by the url query parameter.
func (h *PDFHandler) HandleRenderURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	req := RenderURLRequest{URL: r.URL.Query().Get("url")}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	pdf, err := h.renderer.RenderURL(ctx, req.URL)
	if err != nil {
		h.logger.Warn("url rendering failed",
			zap.String("request_id", requestID),
			zap.String("url", req.URL),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("rendered web page",
		zap.String("request_id", requestID),
		zap.String("url", req.URL),
		zap.Int("bytes", len(pdf)))

	_ = utils.WritePDF(w, "document.pdf", pdf)
}
