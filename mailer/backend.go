package mailer

import (
	"io"
	"os/exec"

	"licensepro-backend/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrSMTPNotConfigured is an error indicating that SMTP is not configured
var ErrSMTPNotConfigured = errors.New("SMTP is not configured")

// Backend delivers one rendered message. Implementations do not retry.
type Backend interface {
	Send(msg Message) error
}

// EmailDialer is an interface for sending email messages
type EmailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender is the From identity shared by every backend
type Sender struct {
	Address string
	Name    string
}

func (s Sender) newMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.Address, s.Name)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody(EmailKindText, msg.TextBody)
		m.AddAlternative(EmailKindHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody(EmailKindHTML, msg.HTMLBody)
	default:
		m.SetBody(EmailKindText, msg.TextBody)
	}
	return m
}

// SMTPBackend sends each message immediately over SMTP.
type SMTPBackend struct {
	Dialer EmailDialer
	Sender Sender
}

// NewSMTPBackend creates an SMTP backend from the mail settings.
func NewSMTPBackend(cfg config.SMTPConfig) (*SMTPBackend, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, ErrSMTPNotConfigured
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return &SMTPBackend{
		Dialer: d,
		Sender: Sender{Address: cfg.From, Name: cfg.FromName},
	}, nil
}

func (b *SMTPBackend) Send(msg Message) error {
	if err := b.Dialer.DialAndSend(b.Sender.newMessage(msg)); err != nil {
		return errors.Wrap(err, "dialing and sending email")
	}
	return nil
}

// SendmailBackend pipes messages to a local sendmail compatible binary.
type SendmailBackend struct {
	Path   string
	Sender Sender
}

func NewSendmailBackend(cfg config.SMTPConfig) (*SendmailBackend, error) {
	if cfg.SendmailPath == "" || cfg.From == "" {
		return nil, ErrSMTPNotConfigured
	}
	return &SendmailBackend{
		Path:   cfg.SendmailPath,
		Sender: Sender{Address: cfg.From, Name: cfg.FromName},
	}, nil
}

func (b *SendmailBackend) Send(msg Message) error {
	if err := gomail.Send(gomail.SendFunc(b.pipe), b.Sender.newMessage(msg)); err != nil {
		return errors.Wrap(err, "sending email through sendmail")
	}
	return nil
}

func (b *SendmailBackend) pipe(from string, to []string, msg io.WriterTo) error {
	args := append([]string{"-oi", "-f", from, "--"}, to...)
	cmd := exec.Command(b.Path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "opening sendmail stdin")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting %s", b.Path)
	}
	if _, err := msg.WriteTo(stdin); err != nil {
		stdin.Close()
		cmd.Wait()
		return errors.Wrap(err, "writing message")
	}
	if err := stdin.Close(); err != nil {
		cmd.Wait()
		return errors.Wrap(err, "closing sendmail stdin")
	}
	return errors.Wrap(cmd.Wait(), "waiting for sendmail")
}

// StdoutBackend logs emails instead of sending them. It is meant for
// development.
type StdoutBackend struct {
	Logger *zap.Logger
	Sender Sender
}

func NewStdoutBackend(cfg config.SMTPConfig, log *zap.Logger) *StdoutBackend {
	return &StdoutBackend{
		Logger: log,
		Sender: Sender{Address: cfg.From, Name: cfg.FromName},
	}
}

func (b *StdoutBackend) Send(msg Message) error {
	b.Logger.Info("Email (not sent, using StdoutBackend)",
		zap.String("from", b.Sender.Address),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}

// NewBackend picks the transport named by MAIL_TRANSPORT.
func NewBackend(cfg config.SMTPConfig, log *zap.Logger) (Backend, error) {
	switch cfg.Transport {
	case "sendmail":
		b, err := NewSendmailBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "stdout":
		return NewStdoutBackend(cfg, log), nil
	case "smtp", "":
		b, err := NewSMTPBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, errors.Errorf("unknown mail transport %q", cfg.Transport)
	}
}
