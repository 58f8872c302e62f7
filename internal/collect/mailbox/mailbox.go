// Package mailbox reads unseen job-related messages from an IMAP mailbox.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"jobpilot/internal/classify"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
)

const (
	defaultMailbox     = "INBOX"
	defaultMaxMessages = 200
	defaultLookback    = 90 * 24 * time.Hour
)

type Config struct {
	Host             string
	Port             int
	Username         string
	Password         string
	Mailbox          string
	MaxMessages      int
	Lookback         time.Duration
	SearchSubjectAny []string
}

// Reader fetches one batch of messages per call to Fetch.
type Reader struct {
	cfg Config
	log logger.Logger
	now func() time.Time
}

func New(cfg Config, log logger.Logger) *Reader {
	if cfg.Mailbox == "" {
		cfg.Mailbox = defaultMailbox
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultLookback
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	return &Reader{cfg: cfg, log: logger.Component(log, "collect:mailbox"), now: time.Now}
}

// Batch holds the job-related messages of one fetch. Finalize marks them
// \Seen and closes the connection; Close only closes it.
type Batch struct {
	Emails []domain.Email

	client *imapclient.Client
	uids   []imap.UID
}

func (b *Batch) Finalize(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	defer b.Close()
	if err := ctx.Err(); err != nil {
		return err
	}
	return markSeen(b.client, b.uids)
}

func (b *Batch) Close() {
	if b == nil || b.client == nil {
		return
	}
	_ = b.client.Logout().Wait()
	_ = b.client.Close()
	b.client = nil
}

func (r *Reader) Fetch(ctx context.Context) (*Batch, error) {
	c, err := r.dial()
	if err != nil {
		return nil, err
	}
	batch := &Batch{client: c}

	if _, err := c.Select(r.cfg.Mailbox, nil).Wait(); err != nil {
		batch.Close()
		return nil, fmt.Errorf("imap select %s: %w", r.cfg.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   r.now().Add(-r.cfg.Lookback),
	}
	data, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		batch.Close()
		return nil, fmt.Errorf("imap uid search: %w", err)
	}
	uids := data.AllUIDs()
	if len(uids) == 0 {
		return batch, nil
	}
	// newest first, capped
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > r.cfg.MaxMessages {
		uids = uids[:r.cfg.MaxMessages]
	}

	section := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	cmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})

	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			_ = cmd.Close()
			batch.Close()
			return nil, err
		}
		msg := cmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			_ = cmd.Close()
			batch.Close()
			return nil, fmt.Errorf("imap fetch: %w", err)
		}
		raw := buf.FindBodySection(section)
		if len(raw) == 0 {
			continue
		}
		e, err := Parse(raw)
		if err != nil {
			r.log.WithError(err).Debug("unparseable message", map[string]interface{}{"uid": buf.UID})
			continue
		}
		if !r.wanted(e) {
			skipped++
			continue
		}
		batch.Emails = append(batch.Emails, e)
		batch.uids = append(batch.uids, buf.UID)
	}
	if err := cmd.Close(); err != nil {
		batch.Close()
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}

	r.log.Info("fetched", map[string]interface{}{
		"mailbox": r.cfg.Mailbox,
		"unseen":  len(uids),
		"kept":    len(batch.Emails),
		"skipped": skipped,
	})
	return batch, nil
}

// wanted keeps job-related mail and anything whose subject carries one of
// the configured terms.
func (r *Reader) wanted(e domain.Email) bool {
	if classify.IsJobRelated(e) {
		return true
	}
	subj := strings.ToLower(e.Subject)
	for _, term := range r.cfg.SearchSubjectAny {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" && strings.Contains(subj, term) {
			return true
		}
	}
	return false
}

func (r *Reader) dial() (*imapclient.Client, error) {
	if r.cfg.Host == "" {
		return nil, errors.New("imap host is required")
	}
	if r.cfg.Username == "" || r.cfg.Password == "" {
		return nil, errors.New("imap username/password is required")
	}
	addr := net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port))
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: r.cfg.Host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	if err := c.Login(r.cfg.Username, r.cfg.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap mark seen: %w", err)
	}
	return nil
}
