package extraction

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"

	"github.com/google/uuid"
)

// TextExtractor reads machine-readable text and tables out of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, []Table, error)
}

// PageRenderer rasterises every page of a PDF into outDir and returns the
// image paths in page order.
type PageRenderer interface {
	RenderPages(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// TextRecognizer is the optical model: one RGB image in, its text out.
// Line breaks in the returned text are meaningful to the table heuristic.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, img image.Image) (string, error)
}

// Options tune an Engine.
type Options struct {
	// PageDir is where per-call render directories are created.
	PageDir string
	// RetainPages keeps rendered page images after Extract returns.
	RetainPages bool
	// OCRTimeout bounds each recognizer call.
	OCRTimeout time.Duration
}

// Engine runs the direct-then-optical extraction chain. A nil recognizer
// means the optical model could not be loaded.
type Engine struct {
	pdf      TextExtractor
	renderer PageRenderer
	ocr      TextRecognizer
	opts     Options
	log      *logger.Logger
}

// NewEngine wires the collaborators. Any of them may be nil; the chain
// degrades accordingly.
func NewEngine(pdf TextExtractor, renderer PageRenderer, ocr TextRecognizer, opts Options, log *logger.Logger) *Engine {
	if opts.PageDir == "" {
		opts.PageDir = os.TempDir()
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = 60 * time.Second
	}
	return &Engine{
		pdf:      pdf,
		renderer: renderer,
		ocr:      ocr,
		opts:     opts,
		log:      log.With("component", "extraction"),
	}
}

// Extract never fails: missing files, conversion problems and per-page OCR
// errors all degrade to partial or empty results with a logged cause.
func (e *Engine) Extract(ctx context.Context, doc Document) Result {
	e.log.Info("extracting document", "path", doc.Path, "kind", doc.Kind)

	if _, err := os.Stat(doc.Path); err != nil {
		e.log.Error("document not found", "path", doc.Path, "error", err)
		metrics.ExtractionTotal.WithLabelValues("not_found").Inc()
		return emptyResult()
	}

	switch doc.Kind {
	case KindHTML:
		return e.extractHTML(doc.Path)
	case KindPDF:
		if res, ok := e.extractDirect(ctx, doc.Path); ok {
			return res
		}
		e.log.Info("no text or tables in pdf, using optical fallback", "path", doc.Path)
		images, cleanup := e.renderPages(ctx, doc.Path)
		defer cleanup()
		return e.recognize(ctx, images)
	default:
		return e.recognize(ctx, []string{doc.Path})
	}
}

func (e *Engine) extractDirect(ctx context.Context, path string) (Result, bool) {
	if e.pdf == nil {
		return Result{}, false
	}
	text, tables, err := e.pdf.ExtractText(ctx, path)
	if err != nil {
		e.log.Warn("direct pdf extraction failed", "path", path, "error", err)
		return Result{}, false
	}
	if strings.TrimSpace(text) == "" && len(tables) == 0 {
		return Result{}, false
	}

	res := emptyResult()
	res.Text = CleanText(text)
	res.Tables = append(res.Tables, tables...)
	e.log.Info("used direct pdf extraction", "text", logger.Preview(res.Text, 100), "tables", len(res.Tables))
	metrics.ExtractionTotal.WithLabelValues("direct").Inc()
	return res, true
}

// renderPages renders into a fresh directory owned by this call. The
// returned cleanup removes it unless pages are retained.
func (e *Engine) renderPages(ctx context.Context, pdfPath string) ([]string, func()) {
	noop := func() {}
	if e.renderer == nil {
		e.log.Warn("no page renderer configured", "path", pdfPath)
		return nil, noop
	}

	outDir := filepath.Join(e.opts.PageDir, "pages-"+uuid.NewString())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		e.log.Error("failed to create page directory", "dir", outDir, "error", err)
		return nil, noop
	}
	cleanup := func() {
		if e.opts.RetainPages {
			return
		}
		if err := os.RemoveAll(outDir); err != nil {
			e.log.Warn("failed to remove rendered pages", "dir", outDir, "error", err)
		}
	}

	images, err := e.renderer.RenderPages(ctx, pdfPath, outDir)
	if err != nil {
		e.log.Error("pdf conversion failed", "path", pdfPath, "error", err)
		return nil, cleanup
	}
	return images, cleanup
}

func (e *Engine) recognize(ctx context.Context, images []string) Result {
	if len(images) == 0 {
		e.log.Warn("no images available, returning placeholder text")
		metrics.ExtractionTotal.WithLabelValues("placeholder").Inc()
		res := emptyResult()
		res.Text = PlaceholderText
		return res
	}

	res := emptyResult()
	res.Images = append(res.Images, images...)

	if e.ocr == nil {
		e.log.Error("optical model unavailable, returning partial result", "images", len(images))
		metrics.ExtractionTotal.WithLabelValues("ocr_unavailable").Inc()
		return res
	}

	pages := make([]string, 0, len(images))
	for _, path := range images {
		img, err := LoadImage(path)
		if err != nil {
			e.log.Error("failed to decode page image", "image", path, "error", err)
			continue
		}

		pageCtx, cancel := context.WithTimeout(ctx, e.opts.OCRTimeout)
		raw, err := e.ocr.RecognizeText(pageCtx, img)
		cancel()
		if err != nil {
			e.log.Error("optical recognition failed", "image", path, "error", err)
			continue
		}

		if table, ok := DetectTable(raw); ok {
			res.Tables = append(res.Tables, table)
		}
		text := CleanText(raw)
		if text != "" {
			pages = append(pages, text)
		}
		e.log.Info("optical recognition done", "image", path, "text", logger.Preview(text, 100))
	}

	res.Text = strings.Join(pages, "\n")
	metrics.ExtractionTotal.WithLabelValues("ocr").Inc()
	e.log.Info("finished extraction", "pages", len(pages), "tables", len(res.Tables), "images", len(res.Images))
	return res
}
