package notifyer

import (
	"context"
	"log/slog"
	"reflect"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/0x0BSoD/easyNotifyer/internal/config"
	"github.com/0x0BSoD/easyNotifyer/internal/model"
	"github.com/0x0BSoD/easyNotifyer/internal/report"
	"github.com/0x0BSoD/easyNotifyer/internal/telegram"
)

// Report is the message built for one failed call.
type Report = model.Report

// Delivery is what a Sender receives for one failed call.
type Delivery = model.Delivery

// Sender delivers a report to every chat in the delivery.
//
//go:generate mockgen -destination=internal/mocks/sender.go -package=mocks github.com/0x0BSoD/easyNotifyer Sender
type Sender interface {
	Send(ctx context.Context, d model.Delivery) error
}

// Reporter sends a report for every matching failure of the functions it
// wraps. It is immutable and safe for concurrent use.
type Reporter struct {
	cfg      config.Resolved
	matchers []Matcher
	sender   Sender
	logger   *slog.Logger
	name     string
	now      func() time.Time
}

// New resolves the configuration and returns a Reporter. It fails with a
// *ConfigError when the token or the chat ids are missing.
func New(opts ...Option) (*Reporter, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	env, err := config.Load(o.files...)
	if err != nil {
		return nil, &ConfigError{Field: "config", Reason: err.Error()}
	}

	cfg, err := config.Resolve(o.overrides, env)
	if err != nil {
		return nil, err
	}

	r := &Reporter{
		cfg:      cfg,
		matchers: o.matchers,
		sender:   o.sender,
		logger:   o.logger,
		name:     o.name,
		now:      time.Now,
	}
	if r.sender == nil {
		r.sender = telegram.New(cfg.Token, cfg.APIEndpoint, o.client)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Reporter {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Named returns a copy of r that uses name as the function name in reports.
func (r *Reporter) Named(name string) *Reporter {
	c := *r
	c.name = name
	return &c
}

// Report sends a report for err regardless of the configured matchers.
// A nil err is ignored.
func (r *Reporter) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	r.deliver(ctx, r.name, err)
}

// Recover reports a panic and re-panics with the original value. It must be
// deferred directly:
//
//	defer r.Recover(ctx)
func (r *Reporter) Recover(ctx context.Context) {
	if rec := recover(); rec != nil {
		r.handlePanic(ctx, r.name, rec)
	}
}

func (r *Reporter) nameFor(fn any) string {
	if r.name != "" {
		return r.name
	}
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return ""
}

// run calls fn and reports a matching error or a panic. The error fn
// returned is passed back untouched; panics are re-raised.
func (r *Reporter) run(ctx, deliveryCtx context.Context, name string, fn func(context.Context) error) error {
	defer func() {
		if rec := recover(); rec != nil {
			r.handlePanic(deliveryCtx, name, rec)
		}
	}()

	err := fn(ctx)
	if err != nil && matchAny(r.matchers, err) {
		r.deliver(deliveryCtx, name, err)
	}

	return err
}

func (r *Reporter) handlePanic(ctx context.Context, name string, rec any) {
	perr := &PanicError{Value: rec, Stack: debug.Stack()}
	if matchAny(r.matchers, perr) {
		r.deliver(ctx, name, perr)
	}
	panic(rec)
}

// deliver never fails: a broken notification channel must not hide the
// error being reported.
func (r *Reporter) deliver(ctx context.Context, name string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "error report sender panicked", "func", name, "panic", rec)
		}
	}()

	rep := report.Build(err, report.Options{
		FuncName:       name,
		Header:         r.cfg.Header,
		AsAttachment:   r.cfg.AsAttachment,
		Filename:       r.cfg.Filename,
		FilenameLayout: r.cfg.FilenameLayout,
		Now:            r.now,
		ParseMode:      r.cfg.ParseMode,
	})

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	sendErr := r.sender.Send(ctx, model.Delivery{
		ChatIDs:               r.cfg.ChatIDs,
		Report:                rep,
		ParseMode:             r.cfg.ParseMode,
		DisableWebPagePreview: r.cfg.DisableWebPagePreview,
		DisableNotification:   r.cfg.DisableNotification,
	})
	if sendErr != nil {
		r.logger.ErrorContext(ctx, "failed to send error report", "func", name, "err", sendErr)
	}
}
