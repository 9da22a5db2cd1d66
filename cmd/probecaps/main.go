// Command probecaps runs the startup capability probe and prints the
// result, for diagnosing which extraction backends a host can offer.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/tbellec/ladingd/internal/capability"
	"github.com/tbellec/ladingd/internal/common"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	prober := capability.NewProber(capability.ProbeConfig{
		LayoutURL:    cfg.Layout.BaseURL,
		LLMURL:       cfg.LLM.BaseURL,
		PaddleBin:    cfg.OCR.Paddle,
		TesseractBin: cfg.OCR.Tesseract,
		CheckTimeout: cfg.Probe.CheckTimeout,
	}, logger)

	caps := prober.Probe(context.Background())

	out := make(map[string]capability.Info, len(capability.Backends))
	for _, b := range capability.Backends {
		out[string(b)] = caps.Get(b)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
