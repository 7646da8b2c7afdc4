package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	responderclient "github.com/astrachat/astra/internal/client/responder"
	"github.com/astrachat/astra/internal/config"
	"github.com/astrachat/astra/internal/handler"
	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/pkg/logger"
	chatservice "github.com/astrachat/astra/internal/service/chat"
	"github.com/astrachat/astra/internal/service/conversation"
	"github.com/astrachat/astra/internal/service/mode"
	"github.com/astrachat/astra/internal/storage"
	"github.com/astrachat/astra/internal/surface/terminal"
	"github.com/astrachat/astra/internal/surface/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	modeFlag := flag.String("mode", cfg.Client.InitialMode, "initial reply mode: text, audio or video")
	webFlag := flag.String("web", cfg.Client.WebAddr, "listen address for the browser surface (empty disables it)")
	flag.Parse()

	initialMode, err := chat.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("invalid -mode: %v", err)
	}

	zl, err := logger.New(logger.Options{FilePath: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	backend, err := storage.Open(ctx, storage.Options{
		Kind:          storage.Kind(cfg.Storage.Backend),
		Path:          cfg.Storage.Path,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
	})
	if err != nil {
		zl.Error("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		log.Fatalf("failed to open storage: %v", err)
	}
	defer backend.Close()

	store := chatservice.NewStore(backend, cfg.Storage.Key, chatservice.WithLogger(logger.Module(zl, "store")))
	selector := mode.NewSelector(initialMode)
	client := responderclient.New(cfg.Client.ResponderURL, cfg.Client.ResponderTimeout, logger.Module(zl, "responder"))

	svc := conversation.New(store, selector, client, conversation.Options{
		TimeLayout: cfg.Client.TimeLayout,
		MetaLayout: cfg.Client.SessionMetaLayout,
		Logger:     logger.Module(zl, "conversation"),
	})

	printer := terminal.NewPrinter(os.Stdout)
	svc.Attach(printer)

	if *webFlag != "" {
		hub := web.NewHub(svc, logger.Module(zl, "web"))
		svc.Attach(hub)
		srv := &http.Server{
			Addr:              *webFlag,
			Handler:           handler.NewSurfaceRouter(hub),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("web surface stopped", zap.Error(err))
			}
		}()
		defer func() {
			svc.Detach(hub)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			if err := hub.Close(); err != nil {
				zl.Warn("web surface close", zap.Error(err))
			}
		}()
		printer.Notice("browser surface on ws://%s/ws", *webFlag)
	}

	svc.Start(ctx)

	repl := terminal.NewREPL(svc, printer, logger.Module(zl, "repl"))
	if err := repl.Run(ctx, os.Stdin); err != nil {
		zl.Error("input closed", zap.Error(err))
	}
}
