package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/config"
	"github.com/astrachat/astra/internal/handler"
	"github.com/astrachat/astra/internal/handler/process"
	"github.com/astrachat/astra/internal/pkg/logger"
	"github.com/astrachat/astra/internal/service/ai"
	"github.com/astrachat/astra/internal/service/speech"
	"github.com/astrachat/astra/internal/service/video"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{FilePath: cfg.Log.File, Console: true, Level: cfg.Log.Level})
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	if err := handler.EnsureMediaDirs(cfg.Media.Dir); err != nil {
		zl.Fatal("failed to create media directories", zap.Error(err))
	}

	aiService, err := ai.NewService(ctx, cfg.AI, logger.Module(zl, "ai"))
	if err != nil {
		zl.Fatal("failed to initialize AI service", zap.Error(err))
	}
	if cfg.AI.Enabled() {
		zl.Info("AI service initialized with Ark", zap.String("model", cfg.AI.Model))
	} else {
		zl.Info("Ark 凭证未配置，使用本地 Ollama", zap.String("url", cfg.AI.OllamaURL), zap.String("model", cfg.AI.OllamaModel))
	}

	speechService := speech.NewService(cfg.Speech, cfg.Media.Dir, logger.Module(zl, "speech"))
	videoService := video.NewService(cfg.Video, logger.Module(zl, "video"))
	if !cfg.Video.Enabled() {
		zl.Warn("D-ID API key not configured, video mode will fail")
	}

	proc := process.New(aiService, speechService, videoService, logger.Module(zl, "process"))
	router := handler.NewRouter(proc, cfg.Media.Dir)

	startServer(ctx, zl, cfg.Server, router)
}

func startServer(ctx context.Context, zl *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zl.Info("responder listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
