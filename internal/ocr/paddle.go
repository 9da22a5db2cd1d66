package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbellec/ladingd/constants"
)

// paddleLine matches one recognized fragment in paddleocr CLI output,
// e.g. ('BILL OF LADING', 0.9821).
var paddleLine = regexp.MustCompile(`\('((?:[^'\\]|\\.)*)',\s*([0-9.]+)\)`)

func (e *Extractor) paddleImage(ctx context.Context, path string) (Result, error) {
	txt, conf, warns, err := e.paddleOCR(ctx, path)
	if err != nil {
		return Result{SourceType: constants.IMAGE, Warnings: warns}, err
	}
	txt = Normalize(txt)

	heurConf := heuristicConfidence(txt)
	if conf > 0 {
		conf = 0.7*conf + 0.3*heurConf
	} else {
		conf = heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return Result{
		Text:       txt,
		Pages:      1,
		Method:     "paddle-ocr",
		Language:   "en",
		Warnings:   warns,
		Confidence: conf,
	}, nil
}

// paddleOCR invokes the paddleocr CLI on one image and parses the
// recognized fragments with their per-fragment confidences.
func (e *Extractor) paddleOCR(ctx context.Context, path string) (text string, conf float32, warnings []string, err error) {
	args := []string{"--image_dir", path, "--use_angle_cls", "true", "--lang", "en"}
	if e.cfg.UseGPU {
		args = append(args, "--use_gpu", "true")
	} else {
		args = append(args, "--use_gpu", "false")
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Paddle, args...)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("paddleocr: %w", err)
	}

	matches := paddleLine.FindAllStringSubmatch(string(out), -1)
	if len(matches) == 0 {
		// Engine printed nothing parseable; keep the raw output so the
		// downstream parsers still get a chance.
		return string(out), 0, []string{"paddleocr output not parseable, using raw stdout"}, nil
	}

	var b strings.Builder
	var sum float64
	var n int
	for _, m := range matches {
		b.WriteString(m[1])
		b.WriteString("\n")
		if v, perr := strconv.ParseFloat(m[2], 64); perr == nil {
			sum += v
			n++
		}
	}
	if n > 0 {
		conf = float32(sum / float64(n))
	}
	return b.String(), conf, nil, nil
}
