// Package render produces printable discussion guides for sermons.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/poiesic/homily/core"
)

var (
	// ErrNoGuideContent is returned when an item has no discussion material.
	ErrNoGuideContent = errors.New("item has no discussion guide content")

	// ErrEmptyDocument is returned when the generated PDF has no pages.
	ErrEmptyDocument = errors.New("generated guide has no pages")
)

// Renderer writes discussion guide PDFs with pdfcpu.
type Renderer struct {
	outputDir string
	baseURL   string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer writing under outputDir. Guides are
// addressed under baseURL, or as file:// URLs when baseURL is empty.
func NewRenderer(outputDir, baseURL string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		outputDir: outputDir,
		baseURL:   baseURL,
		logger:    logger.With("component", "guide_renderer"),
	}
}

// RenderGuide builds the guide PDF for item and returns its location.
func (r *Renderer) RenderGuide(ctx context.Context, item *core.Item) (string, error) {
	if !item.Content.HasGuide() {
		return "", ErrNoGuideContent
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pdf, pages, err := Build(item)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(r.outputDir, item.TenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create guide dir: %w", err)
	}
	path := filepath.Join(dir, guideName(item))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("write guide: %w", err)
	}

	r.logger.Info("guide rendered", "item", item.ID, "pages", pages, "bytes", len(pdf))
	return r.location(item.TenantID, path), nil
}

// Build renders the guide of item to PDF bytes and returns them with the
// page count.
func Build(item *core.Item) ([]byte, int, error) {
	if !item.Content.HasGuide() {
		return nil, 0, ErrNoGuideContent
	}
	desc, err := json.Marshal(paginate(layout(item)))
	if err != nil {
		return nil, 0, fmt.Errorf("encode layout: %w", err)
	}

	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(desc), &buf, nil); err != nil {
		return nil, 0, fmt.Errorf("create pdf: %w", err)
	}

	pages, err := api.PageCount(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("count pages: %w", err)
	}
	if pages == 0 {
		return nil, 0, ErrEmptyDocument
	}
	return buf.Bytes(), pages, nil
}

func (r *Renderer) location(tenantID, path string) string {
	if r.baseURL != "" {
		return strings.TrimRight(r.baseURL, "/") + "/" + url.PathEscape(tenantID) + "/" + url.PathEscape(filepath.Base(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
