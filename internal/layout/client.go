// Package layout is an HTTP client for the document-layout analysis
// service (a docling-serve style deployment). The service is optional;
// absence is detected once at startup and the client is simply never
// called when it is missing.
package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is an HTTP client for the layout-analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Analysis is the structured view the service returns for a document.
type Analysis struct {
	Text     string            `json:"text"`
	Title    string            `json:"title,omitempty"`
	Tables   []Table           `json:"tables,omitempty"`
	Sections map[string]string `json:"sections,omitempty"`
	Pages    int               `json:"pages,omitempty"`
}

// Table is one detected table, rows of cell texts.
type Table struct {
	Rows [][]string `json:"rows"`
}

// Complete reports whether the analysis found enough of the document
// structure to be worth handing to the LLM on its own.
func (a *Analysis) Complete() bool {
	if a == nil {
		return false
	}
	found := 0
	for _, key := range []string{"header_info", "parties", "ports"} {
		if strings.TrimSpace(a.Sections[key]) != "" {
			found++
		}
	}
	return found >= 2
}

// Analyze uploads the document and returns the structured analysis.
func (c *Client) Analyze(ctx context.Context, data []byte, filename string) (*Analysis, error) {
	rid := uuid.New().String()
	start := time.Now()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	c.logger.Info("layout.analyze.request", "req_id", rid, "bytes", len(data), "filename", filename)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("layout.analyze.send_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(rc io.ReadCloser) {
		if cerr := rc.Close(); cerr != nil {
			c.logger.Warn("layout.analyze.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Info("layout.analyze.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("layout service status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var out Analysis
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode layout response: %w", err)
	}
	return &out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
