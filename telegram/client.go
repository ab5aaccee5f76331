// Package telegram sends arbitrary messages and files to the chats
// easyNotifyer is configured for, without going through a Reporter.
//
// Settings resolve the same way as for notifyer.New: explicit options first,
// then EASY_NOTIFYER_* environment variables and HCL config files.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/0x0BSoD/easyNotifyer/internal/config"
	"github.com/0x0BSoD/easyNotifyer/internal/model"
	"github.com/0x0BSoD/easyNotifyer/internal/report"
	tgsender "github.com/0x0BSoD/easyNotifyer/internal/telegram"
)

// ErrEmptyMessage is returned for a message without text or a file without data.
var ErrEmptyMessage = errors.New("easy_notifyer: empty message")

// HTTPClient is the transport used for Bot API requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type options struct {
	overrides config.Overrides
	files     []string
	client    HTTPClient
}

type Option func(*options)

// WithToken sets the bot token instead of EASY_NOTIFYER_TELEGRAM_TOKEN.
func WithToken(token string) Option {
	return func(o *options) { o.overrides.Token = &token }
}

// WithChatID sets the default chats instead of EASY_NOTIFYER_TELEGRAM_CHAT_ID.
func WithChatID(ids ...int64) Option {
	return func(o *options) { o.overrides.ChatIDs = append(o.overrides.ChatIDs, ids...) }
}

// WithParseMode sets the default parse mode. Text is sent as is.
func WithParseMode(mode string) Option {
	return func(o *options) { o.overrides.ParseMode = mode }
}

func WithDisableNotification(v bool) Option {
	return func(o *options) { o.overrides.DisableNotification = v }
}

func WithDisableWebPagePreview(v bool) Option {
	return func(o *options) { o.overrides.DisableWebPagePreview = v }
}

func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) { o.client = c }
}

func WithConfigFiles(files ...string) Option {
	return func(o *options) { o.files = append(o.files, files...) }
}

// Client sends to every configured chat. It is safe for concurrent use;
// run a call in its own goroutine to send in the background.
type Client struct {
	cfg    config.Resolved
	sender *tgsender.Sender
	now    func() time.Time
}

// New resolves the configuration. It fails with an error matching
// notifyer.ErrConfig when the token or the chat ids are missing.
func New(opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	env, err := config.Load(o.files...)
	if err != nil {
		return nil, &config.Error{Field: "config", Reason: err.Error()}
	}

	cfg, err := config.Resolve(o.overrides, env)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:    cfg,
		sender: tgsender.New(cfg.Token, cfg.APIEndpoint, o.client),
		now:    time.Now,
	}, nil
}

// SendOption changes a single call.
type SendOption func(*model.Delivery)

// To sends to ids instead of the configured chats.
func To(ids ...int64) SendOption {
	return func(d *model.Delivery) { d.ChatIDs = ids }
}

func ParseMode(mode string) SendOption {
	return func(d *model.Delivery) { d.ParseMode = mode }
}

func Silent() SendOption {
	return func(d *model.Delivery) { d.DisableNotification = true }
}

// NoPreview has no effect on attachments.
func NoPreview() SendOption {
	return func(d *model.Delivery) { d.DisableWebPagePreview = true }
}

// SendMessage sends text to every chat. A failed chat does not stop the
// others; all failures are returned joined.
func (c *Client) SendMessage(ctx context.Context, text string, opts ...SendOption) error {
	if text == "" {
		return ErrEmptyMessage
	}
	return c.send(ctx, model.Report{Text: text, CreatedAt: c.now()}, opts)
}

// SendAttachment sends data as a document named filename, with caption
// under it. An empty filename becomes "<now>.txt" in the configured layout.
func (c *Client) SendAttachment(ctx context.Context, caption, filename string, data []byte, opts ...SendOption) error {
	if len(data) == 0 {
		return ErrEmptyMessage
	}

	now := c.now()
	return c.send(ctx, model.Report{
		Text: caption,
		Attachment: &model.Attachment{
			Filename: report.Filename(filename, c.cfg.FilenameLayout, now),
			Data:     data,
		},
		CreatedAt: now,
	}, opts)
}

func (c *Client) send(ctx context.Context, r model.Report, opts []SendOption) error {
	d := model.Delivery{
		ChatIDs:               c.cfg.ChatIDs,
		Report:                r,
		ParseMode:             c.cfg.ParseMode,
		DisableWebPagePreview: c.cfg.DisableWebPagePreview,
		DisableNotification:   c.cfg.DisableNotification,
	}
	for _, opt := range opts {
		opt(&d)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	return c.sender.Send(ctx, d)
}
