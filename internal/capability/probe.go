package capability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/ocr"
)

// minGPUMemMB is the VRAM floor below which GPU acceleration is not
// worth recommending to the OCR engine.
const minGPUMemMB = 2000

// ProbeConfig points the prober at the optional backends.
type ProbeConfig struct {
	LayoutURL    string
	LLMURL       string
	PaddleBin    string
	TesseractBin string
	NvidiaSMIBin string
	CheckTimeout time.Duration // per check; default 3s
}

// Prober runs the capability checks. All checks are bounded by
// CheckTimeout; a slow or hanging backend is reported unavailable,
// never an error.
type Prober struct {
	cfg    ProbeConfig
	runner ocr.Runner
	http   *http.Client
	logger *slog.Logger

	once   sync.Once
	cached Set
}

func NewProber(cfg ProbeConfig, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 3 * time.Second
	}
	if cfg.PaddleBin == "" {
		cfg.PaddleBin = "paddleocr"
	}
	if cfg.TesseractBin == "" {
		cfg.TesseractBin = "tesseract"
	}
	if cfg.NvidiaSMIBin == "" {
		cfg.NvidiaSMIBin = "nvidia-smi"
	}
	return &Prober{
		cfg:    cfg,
		runner: ocr.ExecRunner{},
		http:   &http.Client{Timeout: cfg.CheckTimeout},
		logger: logger,
	}
}

// SetRunner swaps the process runner; tests use this to stub commands.
func (p *Prober) SetRunner(r ocr.Runner) { p.runner = r }

// SetHTTPClient swaps the HTTP client used for service checks.
func (p *Prober) SetHTTPClient(c *http.Client) { p.http = c }

// Probe runs every check once and caches the result for the process
// lifetime. It never returns an error; absence is a normal outcome.
func (p *Prober) Probe(ctx context.Context) Set {
	p.once.Do(func() {
		p.cached = p.probe(ctx)
	})
	return p.cached
}

func (p *Prober) probe(ctx context.Context) Set {
	start := time.Now()
	var mu sync.Mutex
	found := make(map[constants.Backend]Info, len(Backends))

	record := func(b constants.Backend, info Info) {
		mu.Lock()
		found[b] = info
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record(constants.BackendLayout, p.checkHTTP(gctx, p.cfg.LayoutURL, "/health"))
		return nil
	})
	g.Go(func() error {
		record(constants.BackendLLM, p.checkHTTP(gctx, p.cfg.LLMURL, "/api/tags"))
		return nil
	})
	g.Go(func() error {
		record(constants.BackendModernOCR, p.checkBinary(gctx, p.cfg.PaddleBin, "--version"))
		return nil
	})
	g.Go(func() error {
		record(constants.BackendLegacyOCR, p.checkBinary(gctx, p.cfg.TesseractBin, "--version"))
		return nil
	})
	g.Go(func() error {
		record(constants.BackendGPU, p.checkGPU(gctx))
		return nil
	})
	_ = g.Wait()

	for b, info := range found {
		p.logger.Info("capability.probe",
			"backend", string(b),
			"available", info.Available,
			"version", info.Version,
			"detail", info.Detail,
		)
	}
	p.logger.Info("capability.probe.done", "elapsed_ms", time.Since(start).Milliseconds())
	return NewSet(found)
}

// checkHTTP reports a service reachable when a GET on base+path
// answers with any 2xx/4xx status within the check timeout.
func (p *Prober) checkHTTP(ctx context.Context, base, path string) Info {
	if base == "" {
		return Info{Detail: "no URL configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CheckTimeout)
	defer cancel()

	url := strings.TrimRight(base, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Info{Detail: err.Error()}
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return Info{Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Info{Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return Info{Available: true, Detail: url}
}

// checkBinary reports a CLI backend available when the binary is on
// PATH; the version output is kept as metadata when it runs quickly.
func (p *Prober) checkBinary(ctx context.Context, bin, versionArg string) Info {
	if _, err := p.runner.LookPath(bin); err != nil {
		return Info{Detail: err.Error()}
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CheckTimeout)
	defer cancel()

	out, errb, err := p.runner.Run(ctx, bin, versionArg)
	if err != nil {
		// On PATH but the version call failed or timed out; treat the
		// binary as present, version unknown.
		return Info{Available: true, Detail: strings.TrimSpace(string(errb))}
	}
	version := strings.TrimSpace(string(out))
	if version == "" {
		version = strings.TrimSpace(string(errb)) // tesseract prints to stderr
	}
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = version[:i]
	}
	return Info{Available: true, Version: version}
}

// checkGPU queries nvidia-smi for total VRAM and recommends GPU
// acceleration only above the memory floor.
func (p *Prober) checkGPU(ctx context.Context) Info {
	if _, err := p.runner.LookPath(p.cfg.NvidiaSMIBin); err != nil {
		return Info{Detail: "nvidia-smi not found"}
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CheckTimeout)
	defer cancel()

	out, _, err := p.runner.Run(ctx, p.cfg.NvidiaSMIBin,
		"--query-gpu=memory.total", "--format=csv,noheader,nounits")
	if err != nil {
		return Info{Detail: err.Error()}
	}
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	memMB, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return Info{Detail: "unparseable nvidia-smi output"}
	}
	if memMB < minGPUMemMB {
		return Info{Detail: fmt.Sprintf("only %d MB VRAM", memMB)}
	}
	return Info{Available: true, Detail: fmt.Sprintf("%d MB VRAM", memMB)}
}
