package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Brownie44l1/fracture-api/internal/config"
	"github.com/Brownie44l1/fracture-api/internal/diagnosis"
	"github.com/Brownie44l1/fracture-api/internal/fracture"
	"github.com/Brownie44l1/fracture-api/internal/handlers"
	"github.com/Brownie44l1/fracture-api/internal/model"
	"github.com/Brownie44l1/fracture-api/internal/xray"
)

type recognizer interface {
	xray.Recognizer
	Close()
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

func loadRecognizer(cfg *config.Config) (recognizer, error) {
	modelPath := cfg.ModelPath(cfg.RecognizerModel)
	metadataPath := cfg.ModelPath(cfg.RecognizerMetadata)
	if cfg.RecognizerBackend == config.BackendOpenCV {
		r, err := model.NewOpenCVRecognizer(modelPath, metadataPath)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := model.NewRecognizer(modelPath, metadataPath)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// run owns every resource so deferred cleanup happens on all exit paths.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Get the project root directory
	execPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}
	cfg.Rebase(execPath)

	if err := handlers.EnsureDir(cfg.UploadDir); err != nil {
		return err
	}

	if err := model.InitEnvironment(cfg.ONNXRuntimeLib); err != nil {
		return err
	}
	defer model.DestroyEnvironment()

	classifierPath := cfg.ModelPath(cfg.ClassifierModel)
	logger.Info("loading classifier", zap.String("path", classifierPath))
	classifier, err := model.NewClassifier(classifierPath, cfg.ModelPath(cfg.ClassifierMetadata))
	if err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}
	defer classifier.Close()

	logger.Info("loading recognizer",
		zap.String("path", cfg.ModelPath(cfg.RecognizerModel)),
		zap.String("backend", cfg.RecognizerBackend))
	rec, err := loadRecognizer(cfg)
	if err != nil {
		return fmt.Errorf("load recognizer: %w", err)
	}
	defer rec.Close()

	validator := xray.NewValidator(rec, logger)
	service := diagnosis.NewService(validator, classifier, fracture.NewDescriber(nil), logger)
	handler := handlers.NewHandler(service, cfg.UploadDir, cfg.MaxUploadMB<<20, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	logger.Info("server starting",
		zap.String("addr", srv.Addr),
		zap.Strings("classes", classifier.Metadata.Classes),
		zap.String("upload_dir", cfg.UploadDir))
	return serve(srv, stop, logger)
}

// serve runs srv until it fails or a signal arrives on stop, then shuts it
// down gracefully.
func serve(srv *http.Server, stop <-chan os.Signal, logger *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
