// Package telegram delivers reports through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/easyNotifyer/internal/model"
)

// contextClient injects a context into every outgoing request so that
// context cancellation and deadlines propagate through the bot library.
type contextClient struct {
	ctx  context.Context
	base tgbotapi.HTTPClient
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.base.Do(req.WithContext(c.ctx))
}

// Sender sends one message or document per chat id.
type Sender struct {
	token    string
	endpoint string
	client   tgbotapi.HTTPClient
}

// New returns a Sender. An empty endpoint selects tgbotapi.APIEndpoint and a
// nil client selects http.DefaultClient. No request is made until Send.
func New(token, endpoint string, client tgbotapi.HTTPClient) *Sender {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Sender{token: token, endpoint: endpoint, client: client}
}

// bot is built by hand instead of tgbotapi.NewBotAPIWithClient, which calls
// getMe before returning.
func (s *Sender) bot(ctx context.Context) *tgbotapi.BotAPI {
	b := &tgbotapi.BotAPI{
		Token:  s.token,
		Client: contextClient{ctx: ctx, base: s.client},
		Buffer: 100,
	}
	b.SetAPIEndpoint(s.endpoint)
	return b
}

// Send delivers d to every chat in d.ChatIDs. A failed chat does not stop
// the others; all failures are returned joined.
func (s *Sender) Send(ctx context.Context, d model.Delivery) error {
	bot := s.bot(ctx)

	var errs []error
	for _, chatID := range d.ChatIDs {
		if _, err := bot.Send(chattable(chatID, d)); err != nil {
			errs = append(errs, fmt.Errorf("send report to chat %d: %w", chatID, err))
		}
	}

	return errors.Join(errs...)
}

func chattable(chatID int64, d model.Delivery) tgbotapi.Chattable {
	if a := d.Report.Attachment; a != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: a.Filename, Bytes: a.Data})
		doc.Caption = d.Report.Text
		doc.ParseMode = d.ParseMode
		doc.DisableNotification = d.DisableNotification
		return doc
	}

	msg := tgbotapi.NewMessage(chatID, d.Report.Text)
	msg.ParseMode = d.ParseMode
	msg.DisableWebPagePreview = d.DisableWebPagePreview
	msg.DisableNotification = d.DisableNotification
	return msg
}
