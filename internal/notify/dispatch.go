package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/reconcile"
)

// Routing decides who hears about an outcome. Responsibles is keyed by
// container id; containers without an entry fall back to Defaults. Failure
// outcomes additionally go to the main container's responsibles and the
// Failure list, and CC rides along on every message.
type Routing struct {
	Responsibles map[string][]string
	Defaults     []string
	Failure      []string
	CC           []string

	// MainDB is the main container's id; its responsibles hear about
	// every failure regardless of which container it surfaced in.
	MainDB string
}

type Dispatcher struct {
	mailer  Mailer
	routing Routing
	logger  *zap.Logger
}

func NewDispatcher(mailer Mailer, routing Routing, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, routing: routing, logger: logger}
}

// Dispatch sends one notification per outcome. A failed send never blocks the
// remaining outcomes; the joined error is returned for the caller's log line.
func (d *Dispatcher) Dispatch(ctx context.Context, outcomes []reconcile.Outcome) error {
	var errs []error
	for _, o := range outcomes {
		subject, text, html, err := renderOutcome(o)
		if err != nil {
			d.logger.Error("notification render failed",
				zap.String("outcome_id", o.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		to := d.recipients(o)
		if len(to) == 0 {
			d.logger.Warn("no recipients resolved, notification dropped",
				zap.String("outcome_id", o.ID),
				zap.String("database_id", o.DatabaseID))
			continue
		}

		msg := Message{To: to, Cc: d.routing.CC, Subject: subject, Text: text, HTML: html}
		if err := d.mailer.Send(ctx, msg); err != nil {
			d.logger.Error("notification send failed",
				zap.String("outcome_id", o.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		d.logger.Info("notification sent",
			zap.String("outcome_id", o.ID),
			zap.Strings("to", to))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) recipients(o reconcile.Outcome) []string {
	to := d.routing.Responsibles[o.DatabaseID]
	if len(to) == 0 {
		to = d.routing.Defaults
	}
	if o.Status == reconcile.StatusFailure {
		to = append(append([]string(nil), to...), d.routing.Responsibles[d.routing.MainDB]...)
		to = append(to, d.routing.Failure...)
	}
	return dedup(to)
}

// dedup drops blank and repeated addresses, comparing case-insensitively and
// keeping first-seen order.
func dedup(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
