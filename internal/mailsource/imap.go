package mailsource

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"
)

type IMAPConfig struct {
	// Addr is host:port; the connection is implicit TLS.
	Addr     string
	Username string
	Password string

	// Mailbox defaults to INBOX.
	Mailbox string

	// Archive, when set, receives processed messages; they are expunged
	// from the mailbox afterwards.
	Archive string

	// Interval between poll cycles. Defaults to one minute.
	Interval time.Duration
}

// Handler processes one parsed message. A nil return marks the message
// processed on the server; an error leaves it unseen for the next cycle.
type Handler func(ctx context.Context, msg Message) error

// Poller drives the IMAP side: each cycle opens a fresh session, fetches
// unseen messages, hands them to the handler, and marks the handled ones
// seen.
type Poller struct {
	cfg    IMAPConfig
	handle Handler
	logger *zap.Logger
}

func NewPoller(cfg IMAPConfig, handle Handler, logger *zap.Logger) *Poller {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Poller{cfg: cfg, handle: handle, logger: logger}
}

// Run polls until the context is cancelled. Cycle failures are logged and the
// next tick tries again; only cancellation ends the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("mail poller started",
		zap.String("mailbox", p.cfg.Mailbox),
		zap.Duration("interval", p.cfg.Interval))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		if err := p.cycle(ctx); err != nil {
			p.logger.Error("poll cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) cycle(ctx context.Context) error {
	c, err := backoff.Retry(ctx, func() (*client.Client, error) {
		return client.DialTLS(p.cfg.Addr, nil)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.cfg.Addr, err)
	}
	defer c.Logout()

	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		return fmt.Errorf("login %s: %w", p.cfg.Username, err)
	}
	if _, err := c.Select(p.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("select %s: %w", p.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	p.logger.Info("unseen messages found", zap.Int("count", len(ids)))

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	processed := new(imap.SeqSet)
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		parsed, err := Parse(body)
		if err != nil {
			// Unparseable mail would fail forever; mark it seen and
			// move on.
			p.logger.Warn("unparseable message skipped",
				zap.Uint32("seq", msg.SeqNum), zap.Error(err))
			processed.AddNum(msg.SeqNum)
			continue
		}
		if err := p.handle(ctx, parsed); err != nil {
			p.logger.Error("message handling failed",
				zap.String("message_id", parsed.ID), zap.Error(err))
			continue
		}
		processed.AddNum(msg.SeqNum)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if processed.Empty() {
		return nil
	}
	return p.markProcessed(c, processed)
}

func (p *Poller) markProcessed(c *client.Client, set *imap.SeqSet) error {
	addFlags := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.Store(set, addFlags, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if p.cfg.Archive == "" {
		return nil
	}
	if err := c.Copy(set, p.cfg.Archive); err != nil {
		// Archiving is best-effort; the seen flag already prevents
		// reprocessing.
		p.logger.Warn("archive copy failed",
			zap.String("archive", p.cfg.Archive), zap.Error(err))
		return nil
	}
	if err := c.Store(set, addFlags, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flag deleted: %w", err)
	}
	if err := c.Expunge(nil); err != nil {
		return fmt.Errorf("expunge: %w", err)
	}
	return nil
}
