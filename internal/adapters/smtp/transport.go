// Package smtp submits messages over SMTP and stores drafts with IMAP APPEND.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/message"
	"go.uber.org/zap"
)

// Connection security modes
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// Settings describes the submission and draft servers
type Settings struct {
	Host          string
	Port          int
	Username      string
	Password      string
	IMAPHost      string
	IMAPPort      int
	DraftsMailbox string
	Security      string
	Timeout       time.Duration
}

// Transport delivers through an SMTP submission server
type Transport struct {
	settings Settings
	logger   *zap.Logger
	now      func() time.Time

	// base TLS settings, cloned per connection; nil uses the system roots
	tlsConfig *tls.Config
}

// NewTransport creates a new SMTP transport
func NewTransport(settings Settings, logger *zap.Logger) *Transport {
	if settings.Security == "" {
		settings.Security = SecurityTLS
	}
	if settings.DraftsMailbox == "" {
		settings.DraftsMailbox = "Drafts"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	return &Transport{settings: settings, logger: logger, now: time.Now}
}

// Name returns the transport name
func (t *Transport) Name() string {
	return "smtp"
}

// SenderAddress returns the login name, which must be an address
func (t *Transport) SenderAddress(_ context.Context) (string, error) {
	addr, err := mail.ParseAddress(t.settings.Username)
	if err != nil {
		return "", fmt.Errorf("smtp username %q is not an address: %w", t.settings.Username, err)
	}
	return addr.Address, nil
}

// Send submits the message to every To, Cc and Bcc recipient. The returned
// id is the Message-ID header written into the message.
func (t *Transport) Send(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	raw, messageID, err := t.prepare(msg)
	if err != nil {
		return "", err
	}

	recipients := message.Recipients(msg.To, msg.Cc, msg.Bcc)
	if len(recipients) == 0 {
		return "", fmt.Errorf("%w: no recipients", core.ErrDeliveryFailed)
	}
	from, err := t.SenderAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrDeliveryFailed, err)
	}

	c, err := t.connectSMTP(ctx)
	if err != nil {
		return "", classifyError(err)
	}
	defer c.Close()

	if err := c.Mail(from, nil); err != nil {
		return "", classifyError(fmt.Errorf("MAIL FROM failed: %w", err))
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return "", classifyError(fmt.Errorf("RCPT TO %q failed: %w", rcpt, err))
		}
	}

	wc, err := c.Data()
	if err != nil {
		return "", classifyError(fmt.Errorf("DATA command failed: %w", err))
	}
	if _, err := wc.Write(message.StripHeader(raw, "Bcc")); err != nil {
		wc.Close()
		return "", classifyError(fmt.Errorf("failed to send email data: %w", err))
	}
	if err := wc.Close(); err != nil {
		return "", classifyError(fmt.Errorf("failed to close data writer: %w", err))
	}

	if err := c.Quit(); err != nil {
		t.logger.Warn("QUIT command failed", zap.Error(err))
	}

	t.logger.Debug("SMTP message submitted",
		zap.String("message_id", messageID),
		zap.Int("recipients", len(recipients)))
	return messageID, nil
}

// CreateDraft appends the message to the drafts mailbox with the \Draft
// flag and returns its Message-ID
func (t *Transport) CreateDraft(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	if t.settings.IMAPHost == "" {
		return "", fmt.Errorf("%w: no IMAP host configured for drafts", core.ErrDraftUnsupported)
	}

	raw, messageID, err := t.prepare(msg)
	if err != nil {
		return "", err
	}

	c, err := t.connectIMAP(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrDeliveryFailed, err)
	}
	defer c.Logout()

	flags := []string{imap.DraftFlag, imap.SeenFlag}
	if err := c.Append(t.settings.DraftsMailbox, flags, t.now(), bytes.NewBuffer(raw)); err != nil {
		return "", fmt.Errorf("%w: IMAP APPEND to %s failed: %w", core.ErrDeliveryFailed, t.settings.DraftsMailbox, err)
	}

	t.logger.Debug("IMAP draft stored",
		zap.String("mailbox", t.settings.DraftsMailbox),
		zap.String("message_id", messageID))
	return messageID, nil
}

// prepare decodes the message and prepends Message-ID and Date headers
func (t *Transport) prepare(msg *core.OutboundMessage) ([]byte, string, error) {
	body, err := message.Decode(msg.Raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", core.ErrDeliveryFailed, err)
	}

	messageID := generateMessageID(t.settings.Username)
	var buf bytes.Buffer
	buf.WriteString("Message-ID: " + messageID + "\r\n")
	buf.WriteString("Date: " + t.now().Format(time.RFC1123Z) + "\r\n")
	buf.Write(body)
	return buf.Bytes(), messageID, nil
}

func (t *Transport) dial(ctx context.Context, host string, port int) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := &net.Dialer{Timeout: t.settings.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(t.settings.Timeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set connection deadline: %w", err)
	}
	if t.settings.Security == SecurityTLS {
		return tls.Client(conn, t.clientTLS(host)), nil
	}
	return conn, nil
}

func (t *Transport) clientTLS(host string) *tls.Config {
	cfg := &tls.Config{}
	if t.tlsConfig != nil {
		cfg = t.tlsConfig.Clone()
	}
	cfg.ServerName = host
	return cfg
}

func (t *Transport) connectSMTP(ctx context.Context) (*gosmtp.Client, error) {
	conn, err := t.dial(ctx, t.settings.Host, t.settings.Port)
	if err != nil {
		return nil, err
	}

	var c *gosmtp.Client
	if t.settings.Security == SecurityStartTLS {
		// NewClientStartTLS reads the greeting and sends EHLO itself
		c, err = gosmtp.NewClientStartTLS(conn, t.clientTLS(t.settings.Host))
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	} else {
		c = gosmtp.NewClient(conn)
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "localhost"
		}
		if err := c.Hello(hostname); err != nil {
			c.Close()
			return nil, fmt.Errorf("EHLO failed: %w", err)
		}
	}

	if t.settings.Password != "" {
		auth := sasl.NewPlainClient("", t.settings.Username, t.settings.Password)
		if err := c.Auth(auth); err != nil {
			c.Close()
			return nil, fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	return c, nil
}

func (t *Transport) connectIMAP(ctx context.Context) (*imapclient.Client, error) {
	port := t.settings.IMAPPort
	if port == 0 {
		port = 993
	}
	conn, err := t.dial(ctx, t.settings.IMAPHost, port)
	if err != nil {
		return nil, err
	}

	c, err := imapclient.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("IMAP greeting failed: %w", err)
	}

	if t.settings.Security == SecurityStartTLS {
		if err := c.StartTLS(t.clientTLS(t.settings.IMAPHost)); err != nil {
			c.Logout()
			return nil, fmt.Errorf("IMAP STARTTLS failed: %w", err)
		}
	}

	if err := c.Login(t.settings.Username, t.settings.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	return c, nil
}

// classifyError maps transient 4xx replies to core.ErrRateLimited
func classifyError(err error) error {
	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) && smtpErr.Code >= 400 && smtpErr.Code < 500 {
		return fmt.Errorf("%w: smtp %d: %w", core.ErrRateLimited, smtpErr.Code, err)
	}
	return fmt.Errorf("%w: smtp: %w", core.ErrDeliveryFailed, err)
}

func generateMessageID(address string) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = address[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
