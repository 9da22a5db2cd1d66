// Command extract runs the cascade once over a local file and prints
// the extracted record as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/capability"
	"github.com/tbellec/ladingd/internal/cascade"
	"github.com/tbellec/ladingd/internal/common"
	"github.com/tbellec/ladingd/internal/layout"
	"github.com/tbellec/ladingd/internal/llm"
	"github.com/tbellec/ladingd/internal/ocr"
	"github.com/tbellec/ladingd/internal/parser"
	"github.com/tbellec/ladingd/internal/strategy"
)

func main() {
	var (
		noLLM    = flag.Bool("no-llm", false, "skip LLM enhancement steps")
		noLayout = flag.Bool("no-layout", false, "skip layout-analysis steps")
		engine   = flag.String("ocr", "", "force one OCR engine: paddleocr or tesseract")
		verbose  = flag.Bool("v", false, "debug logging")
		withMeta = flag.Bool("attempts", false, "include the attempt trail in the output")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage: extract [flags] <document>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		logger.Error("unsupported media type", "path", path)
		os.Exit(2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err.Error())
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	ctx := context.Background()

	prober := capability.NewProber(capability.ProbeConfig{
		LayoutURL:    cfg.Layout.BaseURL,
		LLMURL:       cfg.LLM.BaseURL,
		PaddleBin:    cfg.OCR.Paddle,
		TesseractBin: cfg.OCR.Tesseract,
		CheckTimeout: cfg.Probe.CheckTimeout,
	}, logger)
	caps := prober.Probe(ctx)

	sel := strategy.NewSelector(caps, logger)
	exec := cascade.NewExecutor(cascade.Config{
		MinConfidence:  cfg.Cascade.MinConfidence,
		AttemptTimeout: cfg.Cascade.AttemptTimeout,
		TimeoutPerMB:   cfg.Cascade.TimeoutPerMB,
		AttemptCeiling: cfg.Cascade.AttemptCeiling,
	}, sel, logger).
		WithParser(parser.New(logger)).
		WithOCR(ocr.NewExtractor(ocr.Config{
			Paddle:        cfg.OCR.Paddle,
			Tesseract:     cfg.OCR.Tesseract,
			Pdftoppm:      cfg.OCR.Pdftoppm,
			TesseractLang: cfg.OCR.TesseractLang,
			DPI:           cfg.OCR.DPI,
			PSM:           cfg.OCR.PSM,
			MaxPages:      cfg.OCR.MaxPages,
		}, logger)).
		WithLayout(layout.NewClient(cfg.Layout.BaseURL, cfg.Layout.Timeout, logger)).
		WithLLM(llm.NewClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger))

	res, err := exec.Execute(ctx, cascade.Input{
		Path:     path,
		Data:     data,
		Filename: filepath.Base(path),
		Format:   format,
	}, strategy.Options{
		DisableLayout: *noLayout,
		DisableLLM:    *noLLM,
		PreferredOCR:  *engine,
	})
	if err != nil {
		logger.Error("extraction failed", "error", err.Error())
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if *withMeta {
		_ = enc.Encode(res)
	} else {
		_ = enc.Encode(res.Record)
	}
}
