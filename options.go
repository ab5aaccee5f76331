package notifyer

import (
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/0x0BSoD/easyNotifyer/internal/config"
)

// HTTPClient is the transport used for Bot API requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type options struct {
	overrides config.Overrides
	matchers  []Matcher
	files     []string
	sender    Sender
	client    HTTPClient
	logger    *slog.Logger
	name      string
}

type Option func(*options)

// WithToken sets the bot token instead of EASY_NOTIFYER_TELEGRAM_TOKEN.
func WithToken(token string) Option {
	return func(o *options) { o.overrides.Token = &token }
}

// WithChatID sets the destination chats instead of
// EASY_NOTIFYER_TELEGRAM_CHAT_ID. Reports go out in the given order.
func WithChatID(ids ...int64) Option {
	return func(o *options) { o.overrides.ChatIDs = append(o.overrides.ChatIDs, ids...) }
}

// WithErrors restricts reporting to errors matching one of targets
// (errors.Is). Without WithErrors or WithMatchers every error is reported.
func WithErrors(targets ...error) Option {
	return WithMatchers(lo.Map(targets, func(t error, _ int) Matcher { return Is(t) })...)
}

// WithMatchers restricts reporting to errors accepted by one of matchers.
func WithMatchers(matchers ...Matcher) Option {
	return func(o *options) { o.matchers = append(o.matchers, matchers...) }
}

// WithHeader sets the first line of the report. An empty header drops the line.
func WithHeader(header string) Option {
	return func(o *options) { o.overrides.Header = &header }
}

// AsAttached sends the error chain as a text file with a short caption.
func AsAttached(v bool) Option {
	return func(o *options) { o.overrides.AsAttachment = v }
}

// WithFilename names the attached file. Defaults to the report time,
// formatted with EASY_NOTIFYER_FILENAME_DT_FORMAT, plus ".txt".
func WithFilename(name string) Option {
	return func(o *options) { o.overrides.Filename = name }
}

// WithParseMode sets the Telegram parse mode: "Markdown", "MarkdownV2" or "HTML".
// The function name and the traceback are escaped for that mode; the header is
// sent as is, so it may use markup. Attached tracebacks are never escaped.
func WithParseMode(mode string) Option {
	return func(o *options) { o.overrides.ParseMode = mode }
}

// DisableWebPagePreview has no effect on attached reports.
func DisableWebPagePreview(v bool) Option {
	return func(o *options) { o.overrides.DisableWebPagePreview = v }
}

func DisableNotification(v bool) Option {
	return func(o *options) { o.overrides.DisableNotification = v }
}

// WithConfigFiles reads defaults from the first existing HCL file. The
// environment still wins over the file.
func WithConfigFiles(files ...string) Option {
	return func(o *options) { o.files = append(o.files, files...) }
}

// WithSender replaces the Telegram delivery client.
func WithSender(s Sender) Option {
	return func(o *options) { o.sender = s }
}

func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) { o.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName fixes the function name shown in reports.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}
