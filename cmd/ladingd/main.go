package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tbellec/ladingd/internal/capability"
	"github.com/tbellec/ladingd/internal/cascade"
	"github.com/tbellec/ladingd/internal/common"
	"github.com/tbellec/ladingd/internal/export"
	"github.com/tbellec/ladingd/internal/layout"
	"github.com/tbellec/ladingd/internal/llm"
	"github.com/tbellec/ladingd/internal/ocr"
	"github.com/tbellec/ladingd/internal/parser"
	"github.com/tbellec/ladingd/internal/repository"
	"github.com/tbellec/ladingd/internal/server"
	"github.com/tbellec/ladingd/internal/strategy"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			logger.Error("config file failed", "path", path, "error", err.Error())
			os.Exit(2)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Probe once; the set is fixed for the process lifetime.
	prober := capability.NewProber(capability.ProbeConfig{
		LayoutURL:    cfg.Layout.BaseURL,
		LLMURL:       cfg.LLM.BaseURL,
		PaddleBin:    cfg.OCR.Paddle,
		TesseractBin: cfg.OCR.Tesseract,
		CheckTimeout: cfg.Probe.CheckTimeout,
	}, logger)
	caps := prober.Probe(ctx)
	for b, info := range caps.All() {
		logger.Info("capability", "backend", string(b), "available", info.Available, "version", info.Version)
	}

	exec := buildExecutor(cfg, caps, logger)
	srv := server.New(cfg, caps, exec, logger)

	var db *repository.DB
	if cfg.Database.DSN != "" {
		var err error
		db, err = repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("database open failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		jobs := repository.NewJobStore(db, logger)
		srv.WithHistory(jobs, export.NewService(jobs, logger))
	} else {
		logger.Info("job history disabled, no DB_URL")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err.Error())
			stop()
		}
	}()

	// gRPC health endpoint for orchestrators that probe over gRPC.
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err.Error())
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err.Error())
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}

func buildExecutor(cfg *common.Config, caps capability.Set, logger *slog.Logger) *cascade.Executor {
	sel := strategy.NewSelector(caps, logger)
	exec := cascade.NewExecutor(cascade.Config{
		MinConfidence:  cfg.Cascade.MinConfidence,
		AttemptTimeout: cfg.Cascade.AttemptTimeout,
		TimeoutPerMB:   cfg.Cascade.TimeoutPerMB,
		AttemptCeiling: cfg.Cascade.AttemptCeiling,
	}, sel, logger)

	exec.WithParser(parser.New(logger))
	exec.WithOCR(ocr.NewExtractor(ocr.Config{
		Paddle:        cfg.OCR.Paddle,
		Tesseract:     cfg.OCR.Tesseract,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger))
	exec.WithLayout(layout.NewClient(cfg.Layout.BaseURL, cfg.Layout.Timeout, logger))
	exec.WithLLM(llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger))
	return exec
}
