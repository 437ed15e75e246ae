package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// RenderDPI is the rasterization resolution. PDF pages render at 72 dpi by
// default; 144 doubles that so small statement print stays legible for the
// vision model.
const RenderDPI = 144

// Renderer rasterizes document pages to images. Implemented here with
// poppler's pdftoppm; tests substitute a mock.
type Renderer interface {
	RenderPages(ctx context.Context, pdfBytes []byte) ([][]byte, error)
}

// PopplerRenderer shells out to pdftoppm to rasterize each page to PNG.
type PopplerRenderer struct {
	DPI int
}

// NewPopplerRenderer returns a renderer at the default resolution.
func NewPopplerRenderer() *PopplerRenderer {
	return &PopplerRenderer{DPI: RenderDPI}
}

// RenderPages converts every page of the document to a PNG image, in page
// order. Any page failing to render fails the whole document.
func (r *PopplerRenderer) RenderPages(ctx context.Context, pdfBytes []byte) ([][]byte, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("pdftoppm not available (install poppler-utils): %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "statement-pages-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "statement.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	imgPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-r", fmt.Sprint(r.dpi()), "-png", pdfPath, imgPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(out))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read temp dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		img, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			return nil, fmt.Errorf("read page image %s: %w", name, err)
		}
		pages = append(pages, img)
	}

	return pages, nil
}

func (r *PopplerRenderer) dpi() int {
	if r.DPI > 0 {
		return r.DPI
	}
	return RenderDPI
}

// FirstPageText extracts the text layer of the first page, when one exists.
// Scanned statements have no text layer, so failures and empty pages are
// reported as an empty string rather than an error; callers treat the text
// as best-effort input for bank identification.
func FirstPageText(pdfBytes []byte) (text string) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil || reader.NumPage() < 1 {
		return ""
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return ""
	}

	plain, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(plain)
}
