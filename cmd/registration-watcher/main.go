package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/config"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/ledger"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/mailsource"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/notify"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/reconcile"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/recordstore"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/registry"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/tracing"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, "registration-watcher", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		logger.Fatal("ledger open failed", zap.Error(err))
	}
	defer led.Close()

	store := recordstore.NewNotion(cfg.Notion.APIKey, logger)
	reg := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.VTAURL, logger)
	engine := reconcile.NewEngine(store, reg, cfg.Catalog(), cfg.Databases(), logger)
	dispatch := notify.NewDispatcher(
		notify.NewSMTPMailer(cfg.SMTPMailer(), logger),
		cfg.Routing(), logger)

	w := watcher.New(led, engine, dispatch, cfg.Catalog(), cfg.SubjectMarkers(), logger)
	poller := mailsource.NewPoller(cfg.IMAPSource(), w.Handle, logger)

	logger.Info("registration watcher starting",
		zap.String("mailbox", cfg.IMAP.Mailbox),
		zap.Duration("interval", cfg.PollInterval()))
	if err := poller.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("poller stopped", zap.Error(err))
	}
	logger.Info("registration watcher stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}
