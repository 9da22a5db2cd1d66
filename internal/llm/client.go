// Package llm refines OCR or layout text into structured fields using
// a local Ollama-style inference service.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbellec/ladingd/internal/record"
)

// Config holds the inference service settings.
type Config struct {
	BaseURL     string
	Model       string // default "gemma3:12b"
	Temperature float32
	Timeout     time.Duration
}

// Client implements FieldExtractor against an Ollama /api/generate
// endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemma3:12b"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

// ExtractFields asks the model for the flat JSON shape, validates it
// against the fixed schema, and converts it to a partial record.
func (c *Client) ExtractFields(ctx context.Context, req ExtractRequest) (record.Partial, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"has_sections", len(req.Sections) > 0,
	)

	body := map[string]any{
		"model":  c.cfg.Model,
		"prompt": BuildPrompt(req),
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"top_p":       0.9,
			"top_k":       10,
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return record.Partial{}, nil, err
	}

	var gen struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return record.Partial{}, raw, fmt.Errorf("decode generate response: %w", err)
	}

	content := []byte(CleanModelResponse(gen.Response))

	schema := BuildFieldsJSONSchema()
	if err := record.ValidateJSONAgainstSchema(schema, content); err != nil {
		cleaned, dropped, sErr := SanitizeModelOutput(content)
		if sErr != nil {
			c.log.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return record.Partial{}, content, fmt.Errorf("sanitize model output: %w", sErr)
		}
		if vErr := record.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(content),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return record.Partial{}, content, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("llm.extract.sanitize_applied",
			"req_id", rid, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		content = cleaned
	}

	var fields Fields
	if err := json.Unmarshal(content, &fields); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return record.Partial{}, content, fmt.Errorf("unmarshal fields: %w", err)
	}

	rec := fields.ToRecord()
	conf := Confidence(rec)

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"bl_number", rec.BLNumber,
		"vessel", fields.VesselName,
		"confidence", conf,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return record.Partial{Fields: rec, Source: record.SourceLLM, Confidence: conf}, content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm http error: %w", err)
	}
	defer func(rc io.ReadCloser) {
		if cerr := rc.Close(); cerr != nil {
			c.log.Warn("llm response body close error", "error", cerr)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("llm status %d: %s", resp.StatusCode, buf.String())
	}

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes(), nil
}
