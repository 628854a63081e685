// Package notify envía alertas de counterfeit por SMTP al equipo de
// operaciones del fabricante. Best-effort: un fallo de envío se loguea y
// nunca afecta el resultado de la validación.
package notify

import (
	"context"
	"fmt"

	gomail "github.com/go-mail/mail"

	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   []string
}

type EmailNotifier struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewEmailNotifier retorna nil si el SMTP no está configurado; el engine
// tolera un notifier nil.
func NewEmailNotifier(cfg Config) *EmailNotifier {
	if cfg.Host == "" || len(cfg.To) == 0 {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
	}
}

func (n *EmailNotifier) CounterfeitAlert(ctx context.Context, token *core.Token, reason string, score float64) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To...)
	m.SetHeader("Subject", fmt.Sprintf("[trueseal] counterfeit detected: product %s", token.ProductRef))
	m.SetBody("text/plain", fmt.Sprintf(
		"Counterfeit detection for token %s\n\nProduct: %s\nBatch: %s\nManufacturer: %s\nReason: %s\nRisk score: %.2f\n",
		token.ID, token.ProductRef, token.BatchRef, token.ManufacturerRef, reason, score,
	))

	if err := n.dialer.DialAndSend(m); err != nil {
		logger.From(ctx).Warn("counterfeit alert email failed",
			logger.TokenID(token.ID), logger.Err(err))
		return
	}
	logger.From(ctx).Info("counterfeit alert sent", logger.TokenID(token.ID))
}
