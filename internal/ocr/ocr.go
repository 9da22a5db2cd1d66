// Package ocr shells out to OCR engines (PaddleOCR, Tesseract) and
// reads native PDF text layers. It knows nothing about strategies or
// fallback; callers pick the engine.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tbellec/ladingd/constants"
)

type Config struct {
	Paddle    string // binary name or absolute path; if empty -> "paddleocr"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default

	UseGPU bool // forwarded to paddleocr when the probe recommends it
}

type Result struct {
	Text       string
	Pages      int
	SourceType constants.Format
	Method     string // "paddle-ocr" | "tesseract-ocr" | "pdf-text"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Paddle == "" {
		cfg.Paddle = "paddleocr"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: ExecRunner{}, logger: logger}
}

// SetRunner swaps the process runner; tests use this to stub commands.
func (e *Extractor) SetRunner(r Runner) { e.runner = r }

// ExtractTesseract runs the legacy OCR engine on an image or a
// rasterized PDF.
func (e *Extractor) ExtractTesseract(ctx context.Context, path string, format constants.Format) (Result, error) {
	start := time.Now()
	var res Result
	var err error
	switch format {
	case constants.IMAGE:
		res, err = e.tesseractImage(ctx, path)
	case constants.PDF:
		res, err = e.overRasterizedPages(ctx, path, func(ctx context.Context, img string) (string, []string, error) {
			return e.tesseractOCR(ctx, img)
		})
		res.Method = "tesseract-ocr"
	default:
		return Result{}, fmt.Errorf("unsupported format: %q", format)
	}
	res.SourceType = format
	res.Language = e.cfg.TesseractLang
	res.Duration = time.Since(start)
	return res, err
}

// ExtractPaddle runs the modern OCR engine on an image or a
// rasterized PDF.
func (e *Extractor) ExtractPaddle(ctx context.Context, path string, format constants.Format) (Result, error) {
	start := time.Now()
	var res Result
	var err error
	switch format {
	case constants.IMAGE:
		res, err = e.paddleImage(ctx, path)
	case constants.PDF:
		res, err = e.overRasterizedPages(ctx, path, func(ctx context.Context, img string) (string, []string, error) {
			txt, _, warns, perr := e.paddleOCR(ctx, img)
			return txt, warns, perr
		})
		res.Method = "paddle-ocr"
		if res.Confidence == 0 && res.Text != "" {
			res.Confidence = heuristicConfidence(res.Text)
		}
	default:
		return Result{}, fmt.Errorf("unsupported format: %q", format)
	}
	res.SourceType = format
	res.Duration = time.Since(start)
	return res, err
}

// overRasterizedPages renders each PDF page to PNG with pdftoppm and
// feeds the pages to fn, joining the page texts with form feeds.
func (e *Extractor) overRasterizedPages(ctx context.Context, path string, fn func(context.Context, string) (string, []string, error)) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "ladingd-pp-*")
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return Result{Warnings: []string{string(errb)}}, err
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{Warnings: []string{"pdftoppm produced no images"}}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, w, ferr := fn(ctx, img)
		if ferr != nil {
			warns = append(warns, ferr.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}
	txt := Normalize(b.String())
	return Result{
		Text:       txt,
		Pages:      len(matches),
		Warnings:   warns,
		Confidence: heuristicConfidence(txt),
	}, nil
}
