// Package watcher is the per-message pipeline: ledger check, language
// detection, field and service extraction, reconciliation, notification, and
// the final ledger entry. One Handle call is one email, start to finish.
package watcher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/extract"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/ledger"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/mailsource"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/notify"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/reconcile"
)

type Watcher struct {
	ledger   *ledger.Ledger
	engine   *reconcile.Engine
	dispatch *notify.Dispatcher
	cat      *catalog.Catalog
	markers  extract.SubjectMarkers
	logger   *zap.Logger
}

func New(led *ledger.Ledger, engine *reconcile.Engine, dispatch *notify.Dispatcher,
	cat *catalog.Catalog, markers extract.SubjectMarkers, logger *zap.Logger) *Watcher {
	return &Watcher{
		ledger:   led,
		engine:   engine,
		dispatch: dispatch,
		cat:      cat,
		markers:  markers,
		logger:   logger,
	}
}

// Handle processes one inbound message. A nil return means the message is
// done with, including registrations that failed and were reported; only
// infrastructure errors (or a panic) surface, leaving the message unseen for
// the next cycle.
func (w *Watcher) Handle(ctx context.Context, msg mailsource.Message) (err error) {
	log := w.logger.With(zap.String("message_id", msg.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling message", zap.Any("panic", r))
			err = fmt.Errorf("handle %s: panic: %v", msg.ID, r)
		}
	}()

	if msg.ID != "" {
		seen, err := w.ledger.Seen(ctx, msg.ID)
		if err != nil {
			return err
		}
		if seen {
			log.Info("message already processed, skipped")
			return nil
		}
	}

	lang := extract.DetectLanguage(msg.Subject, msg.Body, w.markers)
	if lang == "" {
		// Not a registration form in a language we handle. Silent skip,
		// no notification.
		log.Info("language undetermined, message skipped",
			zap.String("subject", msg.Subject))
		return w.record(ctx, msg.ID, ledger.DispositionSkipped, "")
	}

	rec := extract.Fields(msg.Body)
	rec.Language = lang
	if strings.TrimSpace(rec.CompanyName) == "" {
		log.Info("no company name extracted, message skipped")
		return w.record(ctx, msg.ID, ledger.DispositionSkipped, "")
	}

	counts := extract.Services(msg.Body, lang, w.cat)
	log.Info("registration extracted",
		zap.String("company", rec.CompanyName),
		zap.String("language", lang))

	outcomes := w.engine.Process(ctx, reconcile.Input{
		Record:       rec,
		Counts:       counts,
		ReceivedDate: msg.Received.Format("2006-01-02"),
	})

	if err := w.dispatch.Dispatch(ctx, outcomes); err != nil {
		log.Warn("notification delivery incomplete", zap.Error(err))
	}

	disposition := ledger.DispositionProcessed
	for _, o := range outcomes {
		if o.Status == reconcile.StatusFailure {
			disposition = ledger.DispositionFailed
			break
		}
	}
	return w.record(ctx, msg.ID, disposition, rec.CompanyName)
}

func (w *Watcher) record(ctx context.Context, messageID, disposition, companyName string) error {
	if messageID == "" {
		return nil
	}
	return w.ledger.Record(ctx, messageID, disposition, companyName)
}
