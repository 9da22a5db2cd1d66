// Package cascade runs the selected backend combinations in order
// until one yields a complete record, merging partial results along
// the way. It always produces a record: the terminal combination has
// no external requirements.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/common"
	"github.com/tbellec/ladingd/internal/layout"
	"github.com/tbellec/ladingd/internal/llm"
	"github.com/tbellec/ladingd/internal/ocr"
	"github.com/tbellec/ladingd/internal/record"
	"github.com/tbellec/ladingd/internal/strategy"
)

// LayoutAnalyzer is the slice of the layout client the executor needs.
type LayoutAnalyzer interface {
	Analyze(ctx context.Context, data []byte, filename string) (*layout.Analysis, error)
}

// OCRBackend runs one of the OCR engines over a file on disk.
type OCRBackend interface {
	ExtractPaddle(ctx context.Context, path string, format constants.Format) (ocr.Result, error)
	ExtractTesseract(ctx context.Context, path string, format constants.Format) (ocr.Result, error)
}

// RegexParser structures raw text without external services.
type RegexParser interface {
	Parse(text string) record.Partial
}

// Input is one document to extract from. Data is the full file, Path a
// temp copy on disk for the CLI-based OCR engines.
type Input struct {
	Path     string
	Data     []byte
	Filename string
	Format   constants.Format
}

// Config bounds each attempt. The per-attempt budget grows with file
// size and is capped by AttemptCeiling.
type Config struct {
	MinConfidence  float32
	AttemptTimeout time.Duration
	TimeoutPerMB   time.Duration
	AttemptCeiling time.Duration
}

// AttemptStatus classifies what one cascade step produced.
type AttemptStatus string

const (
	// AttemptPartial means the step ran and contributed fields, however few.
	AttemptPartial AttemptStatus = "partial"
	// AttemptUnavailable means a required adapter was not wired; the step
	// was skipped without running anything.
	AttemptUnavailable AttemptStatus = "unavailable"
	// AttemptFailure means the step ran and failed; Reason carries the class.
	AttemptFailure AttemptStatus = "failure"
)

// Failure reasons.
const (
	ReasonTimeout        = "timeout"
	ReasonMalformedInput = "malformed-input"
	ReasonBackendError   = "backend-error"
)

// Attempt is the audit entry for one cascade step.
type Attempt struct {
	Method     string        `json:"method"`
	Status     AttemptStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Confidence float32       `json:"confidence,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Result is the outcome of a full cascade run.
type Result struct {
	Record   record.BillOfLading `json:"record"`
	Status   constants.JobStatus `json:"status"`
	Method   string              `json:"method"`
	Attempts []Attempt           `json:"attempts"`
	Duration time.Duration       `json:"duration"`
}

// Executor drives the cascade. Adapters may be nil when the matching
// backend was not configured; steps needing them report unavailable.
type Executor struct {
	cfg      Config
	selector *strategy.Selector
	layout   LayoutAnalyzer
	ocr      OCRBackend
	llm      llm.FieldExtractor
	parser   RegexParser
	logger   *slog.Logger
}

func NewExecutor(cfg Config, sel *strategy.Selector, logger *slog.Logger) *Executor {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.TimeoutPerMB <= 0 {
		cfg.TimeoutPerMB = 5 * time.Second
	}
	if cfg.AttemptCeiling <= 0 {
		cfg.AttemptCeiling = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cfg: cfg, selector: sel, logger: logger}
}

func (e *Executor) WithLayout(a LayoutAnalyzer) *Executor  { e.layout = a; return e }
func (e *Executor) WithOCR(o OCRBackend) *Executor         { e.ocr = o; return e }
func (e *Executor) WithLLM(f llm.FieldExtractor) *Executor { e.llm = f; return e }
func (e *Executor) WithParser(p RegexParser) *Executor     { e.parser = p; return e }

// Execute runs combinations for the input's format until one completes
// the record or the plan is exhausted. Partial fields survive across
// steps. The returned record is always schema-valid.
func (e *Executor) Execute(ctx context.Context, in Input, opts strategy.Options) (Result, error) {
	if in.Format != constants.PDF && in.Format != constants.IMAGE {
		return Result{}, common.FatalInputError(fmt.Sprintf("unsupported format %q", in.Format))
	}

	start := time.Now()
	plan := e.selector.Select(in.Format, opts)
	acc := record.NewAccumulator()
	budget := e.attemptBudget(len(in.Data))

	res := Result{Status: constants.JobStatusExhausted}
	method := plan[len(plan)-1].Method
	var carriedText string

	for _, comb := range plan {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, common.WrapError(err, "cascade canceled")
		}

		stepCtx, cancel := context.WithTimeout(ctx, budget)
		partial, att := e.runStep(stepCtx, in, comb, carriedText)
		cancel()

		res.Attempts = append(res.Attempts, att)
		e.logger.Info("cascade.attempt",
			"method", comb.Method,
			"status", string(att.Status),
			"reason", att.Reason,
			"confidence", att.Confidence,
			"duration_ms", att.Duration.Milliseconds(),
		)

		if att.Status != AttemptPartial {
			continue
		}
		acc.Merge(partial)
		method = comb.Method
		if partial.Fields.RawText != "" {
			carriedText = partial.Fields.RawText
		}

		if e.complete(acc, comb.Method) {
			res.Status = constants.JobStatusCompleted
			break
		}
	}

	res.Method = method
	res.Record = acc.Finalize(method)
	res.Duration = time.Since(start)

	if err := record.Validate(res.Record); err != nil {
		// The accumulator only writes trimmed non-empty values, so this
		// indicates a programming error, not bad input.
		return res, common.WrapError(err, "merged record failed validation")
	}
	return res, nil
}

// attemptBudget scales the per-step timeout with document size.
func (e *Executor) attemptBudget(sizeBytes int) time.Duration {
	mb := sizeBytes / (1 << 20)
	d := e.cfg.AttemptTimeout + time.Duration(mb)*e.cfg.TimeoutPerMB
	if d > e.cfg.AttemptCeiling {
		d = e.cfg.AttemptCeiling
	}
	return d
}

// complete applies the stop condition: the critical identity fields are
// present and the dominant confidence clears the floor.
func (e *Executor) complete(acc *record.Accumulator, method string) bool {
	rec := acc.Finalize(method)
	if rec.BLNumber == "" || rec.Shipper == nil || rec.Consignee == nil {
		return false
	}
	return rec.ExtractionConfidence >= e.cfg.MinConfidence
}

// runStep gathers the combination's text sources concurrently, then
// hands the text to the field extractor (LLM or regex). carriedText is
// the best text an earlier step produced, so a source-less terminal
// step still has something to parse.
func (e *Executor) runStep(ctx context.Context, in Input, comb strategy.Combination, carriedText string) (record.Partial, Attempt) {
	start := time.Now()
	att := Attempt{Method: comb.Method}

	needsLayout := comb.UseLayout && e.layout == nil
	needsOCR := comb.OCR != strategy.OCRNone && e.ocr == nil
	needsLLM := comb.UseLLM && e.llm == nil
	needsParser := !comb.UseLLM && e.parser == nil
	if needsLayout || needsOCR || needsLLM || needsParser {
		att.Status = AttemptUnavailable
		att.Duration = time.Since(start)
		return record.Partial{}, att
	}

	var (
		analysis  *layout.Analysis
		layoutErr error
		ocrRes    ocr.Result
		ocrErr    error
		pdfRes    ocr.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	if comb.UseLayout {
		g.Go(func() error {
			analysis, layoutErr = e.layout.Analyze(gctx, in.Data, in.Filename)
			return nil
		})
	}
	if comb.OCR != strategy.OCRNone {
		g.Go(func() error {
			switch comb.OCR {
			case strategy.OCRPaddle:
				ocrRes, ocrErr = e.ocr.ExtractPaddle(gctx, in.Path, in.Format)
			case strategy.OCRTesseract:
				ocrRes, ocrErr = e.ocr.ExtractTesseract(gctx, in.Path, in.Format)
			}
			return nil
		})
	}
	if comb.UsePDFText {
		g.Go(func() error {
			pdfRes = ocr.ExtractPDFText(in.Data)
			return nil
		})
	}
	_ = g.Wait() // source errors are collected below, never fatal here

	if layoutErr != nil {
		analysis = nil
	}

	text := ocrRes.Text
	if text == "" || ocrErr != nil {
		text = pdfRes.Text
	}
	if text == "" && analysis != nil {
		text = analysis.Text
	}
	if text == "" {
		text = carriedText
	}

	var sections map[string]string
	if analysis != nil {
		sections = analysis.Sections
	}

	hasSources := comb.UseLayout || comb.OCR != strategy.OCRNone || comb.UsePDFText
	if text == "" && sections == nil && hasSources {
		att.Status = AttemptFailure
		att.Reason = classify(ctx, errors.Join(layoutErr, ocrErr))
		att.Duration = time.Since(start)
		return record.Partial{}, att
	}

	var (
		partial record.Partial
		err     error
	)
	if comb.UseLLM {
		partial, _, err = e.llm.ExtractFields(ctx, llm.ExtractRequest{
			Text:         text,
			Sections:     sections,
			FilenameHint: in.Filename,
		})
	} else {
		partial = e.parser.Parse(text)
	}
	if err != nil {
		att.Status = AttemptFailure
		att.Reason = classify(ctx, err)
		att.Duration = time.Since(start)
		return record.Partial{}, att
	}

	partial.Fields.RawText = text
	att.Status = AttemptPartial
	att.Confidence = partial.Confidence
	att.Duration = time.Since(start)
	return partial, att
}

// classify buckets step failures for the attempt audit trail.
func classify(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		return ReasonTimeout
	case errors.Is(err, common.ErrInvalidInput):
		return ReasonMalformedInput
	default:
		return ReasonBackendError
	}
}
