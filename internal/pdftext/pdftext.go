package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/common"
)

// Text extraction methods.
const (
	MethodAuto      = "auto"
	MethodPdftotext = "pdftotext"
	MethodNative    = "native"
	MethodText      = "text"
)

type Config struct {
	Method    string // auto | pdftotext | native; default auto
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxPages  int    // 0 = no limit
}

// Document is the normalized text of one form, read by both extraction phases.
type Document struct {
	Text            string
	Pages           int
	Method          string
	PreambleSkipped bool
	Duration        time.Duration
	Warnings        []string
}

type Extractor struct {
	cfg      Config
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Method == "" {
		cfg.Method = MethodAuto
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, lookPath: exec.LookPath, logger: logger}
}

// WithRunner swaps the command runner, mainly for tests. The runner is
// assumed to provide the pdftotext binary.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	cp := *e
	cp.runner = r
	cp.lookPath = func(name string) (string, error) { return name, nil }
	return &cp
}

// Extract reads the PDF at path and returns its normalized text. Any failure
// to read the document is fatal and wraps common.ErrDocument; a document
// without any text wraps common.ErrNoText.
func (e *Extractor) Extract(ctx context.Context, path string) (Document, error) {
	start := time.Now()
	if !constants.IsPDFExt(filepath.Ext(path)) {
		return Document{}, fmt.Errorf("%w: unsupported extension %q", common.ErrInvalidInput, filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		return Document{}, fmt.Errorf("%w: %w", common.ErrDocument, err)
	}
	e.logger.Debug("pdftext.extract.start", "path", path, "method", e.cfg.Method)

	raw, pages, method, warns, err := e.readText(ctx, path)
	if err != nil {
		e.logger.Error("pdftext.extract.failed", "path", path, "method", method, "error", err)
		return Document{Warnings: warns}, fmt.Errorf("%w: %s: %w", common.ErrDocument, path, err)
	}

	doc, err := FromText(raw, method)
	doc.Pages = pages
	doc.Warnings = append(warns, doc.Warnings...)
	doc.Duration = time.Since(start)
	if err != nil {
		e.logger.Warn("pdftext.extract.empty", "path", path, "method", method, "pages", pages)
		return doc, err
	}
	e.logger.Info("pdftext.extract.ok",
		"path", path,
		"method", method,
		"pages", pages,
		"chars", len(doc.Text),
		"preamble_skipped", doc.PreambleSkipped,
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func (e *Extractor) readText(ctx context.Context, path string) (string, int, string, []string, error) {
	switch e.cfg.Method {
	case MethodPdftotext:
		txt, pages, warns, err := e.pdfToText(ctx, path)
		return txt, pages, MethodPdftotext, warns, err
	case MethodNative:
		txt, pages, err := readNative(path, e.cfg.MaxPages)
		return txt, pages, MethodNative, nil, err
	case MethodAuto:
		var warns []string
		if _, lookErr := e.lookPath(e.cfg.Pdftotext); lookErr == nil {
			txt, pages, w, err := e.pdfToText(ctx, path)
			if err == nil && strings.TrimSpace(txt) != "" {
				return txt, pages, MethodPdftotext, w, nil
			}
			warns = append(warns, w...)
			if err != nil {
				warns = append(warns, "pdftotext: "+err.Error())
			}
		}
		txt, pages, err := readNative(path, e.cfg.MaxPages)
		return txt, pages, MethodNative, warns, err
	default:
		return "", 0, e.cfg.Method, nil, fmt.Errorf("unknown text method %q", e.cfg.Method)
	}
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, int, []string, error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", fmt.Sprintf("%d", e.cfg.MaxPages))
	}
	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args = append(args, path, "-")
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		var warns []string
		if s := strings.TrimSpace(string(errb)); s != "" {
			warns = append(warns, s)
		}
		return "", 0, warns, err
	}
	text := string(out)
	// pdftotext ends every page with a form feed
	pages := strings.Count(text, "\f")
	if pages == 0 {
		pages = 1
	}
	return text, pages, nil, nil
}

// FromText normalizes already extracted text into a Document. Empty text
// after normalization wraps common.ErrNoText.
func FromText(raw, method string) (Document, error) {
	if method == "" {
		method = MethodText
	}
	text := Normalize(raw)
	body, skipped := SkipPreamble(text)
	doc := Document{Text: body, Pages: 1, Method: method, PreambleSkipped: skipped}
	if !skipped {
		doc.Warnings = append(doc.Warnings, "preamble marker not found, keeping whole text")
	}
	if strings.TrimSpace(body) == "" {
		if text != "" {
			// nothing after the heading; fall back to the whole text
			doc.Text, doc.PreambleSkipped = text, false
			doc.Warnings = append(doc.Warnings, "no content after preamble marker, keeping whole text")
			return doc, nil
		}
		return doc, errors.Join(common.ErrNoText, fmt.Errorf("method %s produced no text", method))
	}
	return doc, nil
}
