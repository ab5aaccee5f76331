package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

const (
	EnvPrefix = "EASY_NOTIFYER"

	DefaultFilenameLayout = "2006-01-02 15_04_05"
	DefaultHeader         = "Your program has crashed ☠️"
)

// ErrConfig is matched by every *Error returned from this package.
var ErrConfig = errors.New("easy_notifyer: configuration error")

// Error reports a setting that could not be resolved.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("easy_notifyer: %s: %s", e.Field, e.Reason)
}

func (e *Error) Is(target error) bool {
	return target == ErrConfig
}

// Config holds the environment-sourced defaults.
type Config struct {
	TelegramToken       string        `hcl:"telegram_token" env:"TELEGRAM_TOKEN"`
	TelegramChatID      string        `hcl:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
	TelegramAPIEndpoint string        `hcl:"telegram_api_endpoint" env:"TELEGRAM_API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s"`
	FilenameDTFormat    string        `hcl:"filename_dt_format" env:"FILENAME_DT_FORMAT" default:"2006-01-02 15_04_05"`
	Timeout             time.Duration `hcl:"timeout" env:"TIMEOUT" default:"10s"`
}

// Load reads the configuration from the environment and, when given, from
// HCL files. The first file found is used; the environment wins over it.
func Load(files ...string) (Config, error) {
	var cfg Config

	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:          true,
		EnvPrefix:          EnvPrefix,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		SkipFiles:          len(files) == 0,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// ChatIDs parses the comma-separated chat id list.
func (c Config) ChatIDs() ([]int64, error) {
	parts := lo.Filter(
		lo.Map(strings.Split(c.TelegramChatID, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}),
		func(s string, _ int) bool { return s != "" },
	)

	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, &Error{Field: EnvPrefix + "_TELEGRAM_CHAT_ID", Reason: fmt.Sprintf("invalid chat id %q", p)}
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Overrides are the values given explicitly at the call site. Nil pointers
// and empty slices fall back to the environment.
type Overrides struct {
	Token                 *string
	ChatIDs               []int64
	Header                *string
	AsAttachment          bool
	Filename              string
	ParseMode             string
	DisableWebPagePreview bool
	DisableNotification   bool
}

// Resolved is the immutable configuration a reporter runs with.
type Resolved struct {
	Token                 string
	ChatIDs               []int64
	Header                string
	AsAttachment          bool
	Filename              string
	FilenameLayout        string
	ParseMode             string
	DisableWebPagePreview bool
	DisableNotification   bool
	APIEndpoint           string
	Timeout               time.Duration
}

var parseModes = []string{
	"",
	tgbotapi.ModeMarkdown,
	tgbotapi.ModeMarkdownV2,
	tgbotapi.ModeHTML,
}

// Resolve merges explicit overrides with env. Explicit values win.
func Resolve(o Overrides, env Config) (Resolved, error) {
	r := Resolved{
		Token:                 env.TelegramToken,
		Header:                DefaultHeader,
		AsAttachment:          o.AsAttachment,
		Filename:              o.Filename,
		FilenameLayout:        lo.CoalesceOrEmpty(env.FilenameDTFormat, DefaultFilenameLayout),
		ParseMode:             o.ParseMode,
		DisableWebPagePreview: o.DisableWebPagePreview,
		DisableNotification:   o.DisableNotification,
		APIEndpoint:           lo.CoalesceOrEmpty(env.TelegramAPIEndpoint, tgbotapi.APIEndpoint),
		Timeout:               env.Timeout,
	}

	if o.Token != nil {
		r.Token = *o.Token
	}
	if r.Token == "" {
		return Resolved{}, &Error{Field: "token", Reason: "not set, pass it explicitly or set " + EnvPrefix + "_TELEGRAM_TOKEN"}
	}

	if len(o.ChatIDs) > 0 {
		r.ChatIDs = append([]int64(nil), o.ChatIDs...)
	} else {
		ids, err := env.ChatIDs()
		if err != nil {
			return Resolved{}, err
		}
		r.ChatIDs = ids
	}
	if len(r.ChatIDs) == 0 {
		return Resolved{}, &Error{Field: "chat_id", Reason: "not set, pass it explicitly or set " + EnvPrefix + "_TELEGRAM_CHAT_ID"}
	}

	if o.Header != nil {
		r.Header = *o.Header
	}

	if !lo.Contains(parseModes, r.ParseMode) {
		return Resolved{}, &Error{Field: "parse_mode", Reason: fmt.Sprintf("unsupported mode %q", r.ParseMode)}
	}

	if r.Timeout <= 0 {
		r.Timeout = 10 * time.Second
	}

	return r, nil
}
