package factory

import (
	"context"
	"fmt"
	"io"

	"github.com/mikey/llm-email-agent/internal/adapters/gmail"
	"github.com/mikey/llm-email-agent/internal/adapters/ses"
	"github.com/mikey/llm-email-agent/internal/adapters/smtp"
	"github.com/mikey/llm-email-agent/internal/auth"
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/delivery"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DeliveryFactory creates mail transports and the retrying client around them
type DeliveryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	in     io.Reader
	out    io.Writer
}

// NewDeliveryFactory creates a new delivery factory. in and out are used
// for the interactive OAuth consent step.
func NewDeliveryFactory(cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) *DeliveryFactory {
	return &DeliveryFactory{
		cfg:    cfg,
		logger: logger,
		in:     in,
		out:    out,
	}
}

// CreateTransport creates the transport named by delivery.provider
func (f *DeliveryFactory) CreateTransport(ctx context.Context) (delivery.Transport, error) {
	provider := f.cfg.GetDelivery().Provider

	switch provider {
	case "gmail":
		gmailCfg := f.cfg.GetGmail()
		ts, err := auth.GmailTokenSource(ctx, gmailCfg.CredentialsFile, gmailCfg.TokenFile, f.in, f.out)
		if err != nil {
			return nil, err
		}
		return gmail.NewTransport(ctx, gmailCfg.UserID, f.logger, option.WithTokenSource(ts))
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return smtp.NewTransport(smtp.Settings{
			Host:          smtpCfg.Host,
			Port:          smtpCfg.Port,
			Username:      smtpCfg.Username,
			Password:      smtpCfg.Password,
			IMAPHost:      smtpCfg.IMAPHost,
			IMAPPort:      smtpCfg.IMAPPort,
			DraftsMailbox: smtpCfg.DraftsMailbox,
			Security:      smtpCfg.Security,
			Timeout:       smtpCfg.Timeout,
		}, f.logger), nil
	case "ses":
		sesCfg := f.cfg.GetSES()
		return ses.New(ctx, ses.Settings{
			Region:          sesCfg.Region,
			AccessKeyID:     sesCfg.AccessKeyID,
			SecretAccessKey: sesCfg.SecretAccessKey,
			Sender:          sesCfg.Sender,
		}, f.logger)
	default:
		return nil, fmt.Errorf("%w: unsupported delivery provider: %s", config.ErrConfiguration, provider)
	}
}

// CreateClient wraps transport with the configured retry policy
func (f *DeliveryFactory) CreateClient(transport delivery.Transport) *delivery.Client {
	deliveryCfg := f.cfg.GetDelivery()
	return delivery.NewClient(transport, delivery.Options{
		MaxAttempts: deliveryCfg.MaxAttempts,
		BackoffBase: deliveryCfg.BackoffBase,
		MaxBackoff:  deliveryCfg.MaxBackoff,
		RetryDrafts: deliveryCfg.RetryDrafts,
	}, f.logger)
}
