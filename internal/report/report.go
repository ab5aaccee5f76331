// Package report turns a failed call into a model.Report ready for delivery.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/easyNotifyer/internal/model"
)

const (
	// Telegram rejects longer message texts and captions.
	MaxMessageLength = 4096
	MaxCaptionLength = 1024
)

// Stacker is implemented by errors that carry the stack of the goroutine
// they were captured on.
type Stacker interface {
	StackTrace() []byte
}

type Options struct {
	FuncName       string
	Header         string
	AsAttachment   bool
	Filename       string
	FilenameLayout string
	Now            func() time.Time

	// ParseMode escapes the function name and the traceback in the message
	// text. The header is sent as is so it can carry markup.
	ParseMode string
}

func Build(err error, opts Options) model.Report {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	r := model.Report{
		Header:    opts.Header,
		FuncName:  opts.FuncName,
		Traceback: Traceback(err),
		CreatedAt: now(),
	}

	funcName := escape(opts.ParseMode, r.FuncName)

	text := intro(r.Header, funcName) + "Error:\n" + escape(opts.ParseMode, r.Traceback)
	if !opts.AsAttachment && utf8.RuneCountInString(text) <= MaxMessageLength {
		r.Text = text
		return r
	}

	r.Text = truncate(strings.TrimSuffix(intro(r.Header, funcName), "\n"), MaxCaptionLength)
	r.Attachment = &model.Attachment{
		Filename: Filename(opts.Filename, opts.FilenameLayout, r.CreatedAt),
		Data:     []byte(r.Traceback),
	}

	return r
}

func escape(parseMode, s string) string {
	if parseMode == "" {
		return s
	}
	return tgbotapi.EscapeText(parseMode, s)
}

func intro(header, funcName string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteByte('\n')
	}
	if funcName != "" {
		fmt.Fprintf(&b, "Function: %s\n", funcName)
	}
	return b.String()
}

// Filename returns name, or "<now formatted with layout>.txt" when name is empty.
func Filename(name, layout string, now time.Time) string {
	if name != "" {
		return name
	}
	if layout == "" {
		layout = "2006-01-02 15_04_05"
	}
	return now.Format(layout) + ".txt"
}

// Traceback renders err, the chain of errors it wraps and, when available,
// the captured goroutine stack.
func Traceback(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%T: %+v\n", err, err)

	if causes := chain(err); len(causes) > 0 {
		b.WriteString("\nCaused by:\n")
		for _, c := range causes {
			fmt.Fprintf(&b, "  %T: %v\n", c, c)
		}
	}

	var s Stacker
	if errors.As(err, &s) {
		if stack := s.StackTrace(); len(stack) > 0 {
			b.WriteString("\n")
			b.Write(stack)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func chain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(e error) {
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			if next := u.Unwrap(); next != nil {
				out = append(out, next)
				walk(next)
			}
		case interface{ Unwrap() []error }:
			for _, next := range u.Unwrap() {
				if next == nil {
					continue
				}
				out = append(out, next)
				walk(next)
			}
		}
	}
	walk(err)
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n-1]
	// do not leave a dangling escape in front of the ellipsis
	if runes[len(runes)-1] == '\\' {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
