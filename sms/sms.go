// Package sms sends short text notices through Twilio.
package sms

import (
	"strings"

	"licensepro-backend/config"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Sender delivers a text message to a phone number and reports the
// channel it used.
type Sender interface {
	Send(to, body string) (channel string, err error)
}

// MessageAPI is the part of the Twilio client used here.
type MessageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	api      MessageAPI
	from     string
	whatsapp string
	log      *zap.Logger
}

// NewTwilioSender returns nil when Twilio is not configured, which turns
// the SMS channel off.
func NewTwilioSender(cfg config.TwilioConfig, log *zap.Logger) *TwilioSender {
	if !cfg.SMSEnabled() {
		return nil
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return NewSender(client.Api, cfg.PhoneNumber, cfg.WhatsAppNumber, log)
}

func NewSender(api MessageAPI, from, whatsapp string, log *zap.Logger) *TwilioSender {
	return &TwilioSender{api: api, from: from, whatsapp: whatsapp, log: log}
}

// Send uses WhatsApp for E.164 numbers when a WhatsApp sender is
// configured, plain SMS otherwise.
func (s *TwilioSender) Send(to, body string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", errors.New("no phone number")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetBody(body)

	channel := ChannelSMS
	if strings.HasPrefix(to, "+") && s.whatsapp != "" {
		channel = ChannelWhatsApp
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + s.whatsapp)
	} else {
		params.SetTo(to)
		params.SetFrom(s.from)
	}

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return channel, errors.Wrapf(err, "sending %s to %s", channel, to)
	}

	if resp != nil && resp.Sid != nil {
		s.log.Debug("Message sent", zap.String("to", to), zap.String("channel", channel), zap.String("sid", *resp.Sid))
	} else {
		s.log.Debug("Message sent, but no SID returned", zap.String("to", to), zap.String("channel", channel))
	}
	return channel, nil
}
