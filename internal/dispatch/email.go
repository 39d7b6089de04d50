package dispatch

import (
	"context"
	"errors"

	gomail "gopkg.in/gomail.v2"

	"github.com/achimid/web-page-notify-api/internal/model"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Email delivers messages over SMTP. The channel target is the recipient
// address.
type Email struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is empty")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if from == "" {
		return nil, errors.New("smtp from address is empty")
	}
	return &Email{
		dialer: gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:   from,
	}, nil
}

func (e *Email) Deliver(ctx context.Context, ch model.Channel, msg Message) error {
	if ch.Target == "" {
		return errors.New("email target is empty")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", ch.Target)
	m.SetHeader("Subject", "Watch update: "+msg.Task.URL)
	m.SetBody("text/plain", msg.Text)
	return e.dialer.DialAndSend(m)
}
