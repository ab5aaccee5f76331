// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	notifyer "github.com/0x0BSoD/easyNotifyer"
)

const stderrTailSize = 3000

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		var cmdErr *commandError
		if errors.As(err, &cmdErr) {
			os.Exit(cmdErr.code)
		}
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func newRootCmd(extra ...notifyer.Option) *cobra.Command {
	root := &cobra.Command{
		Use:           "easy-notifyer",
		Short:         "Report failing commands to Telegram",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newRunCmd(extra...))
	return root
}

type runFlags struct {
	token       string
	chatIDs     []int64
	header      string
	asAttached  bool
	filename    string
	parseMode   string
	silent      bool
	configFiles []string
}

func (f runFlags) options(cmd *cobra.Command) []notifyer.Option {
	opts := []notifyer.Option{
		notifyer.AsAttached(f.asAttached),
		notifyer.WithFilename(f.filename),
		notifyer.WithParseMode(f.parseMode),
		notifyer.DisableNotification(f.silent),
		notifyer.WithConfigFiles(f.configFiles...),
	}
	if cmd.Flags().Changed("token") {
		opts = append(opts, notifyer.WithToken(f.token))
	}
	if len(f.chatIDs) > 0 {
		opts = append(opts, notifyer.WithChatID(f.chatIDs...))
	}
	if cmd.Flags().Changed("header") {
		opts = append(opts, notifyer.WithHeader(f.header))
	}
	return opts
}

func newRunCmd(extra ...notifyer.Option) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command and report a non-zero exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := notifyer.New(append(flags.options(cmd), extra...)...)
			if err != nil {
				return fmt.Errorf("create reporter: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			run := r.Named(strings.Join(args, " ")).WrapContext(func(ctx context.Context) error {
				return runCommand(ctx, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			})
			return run(ctx)
		},
	}

	cmd.Flags().StringVar(&flags.token, "token", "", "bot token (default $EASY_NOTIFYER_TELEGRAM_TOKEN)")
	cmd.Flags().Int64SliceVar(&flags.chatIDs, "chat-id", nil, "chat ids (default $EASY_NOTIFYER_TELEGRAM_CHAT_ID)")
	cmd.Flags().StringVar(&flags.header, "header", "", "first line of the report")
	cmd.Flags().BoolVar(&flags.asAttached, "as-attached", false, "send the report as a file")
	cmd.Flags().StringVar(&flags.filename, "filename", "", "name of the attached file")
	cmd.Flags().StringVar(&flags.parseMode, "parse-mode", "", "Markdown, MarkdownV2 or HTML")
	cmd.Flags().BoolVar(&flags.silent, "silent", false, "send without notification sound")
	cmd.Flags().StringSliceVar(&flags.configFiles, "config", nil, "HCL config files")

	return cmd
}

// commandError is a non-zero exit, carrying the tail of the command's stderr.
type commandError struct {
	code   int
	stderr string
	err    error
}

func (e *commandError) Error() string {
	msg := fmt.Sprintf("command exited with code %d", e.code)
	if e.stderr != "" {
		msg += "\nstderr:\n" + e.stderr
	}
	return msg
}

func (e *commandError) Unwrap() error { return e.err }

func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	tail := &tailBuffer{max: stderrTailSize}

	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Stdin = os.Stdin
	// exec copies each stream in its own goroutine, and stdout and stderr
	// are often the same writer.
	var mu sync.Mutex
	c.Stdout = &lockedWriter{mu: &mu, w: stdout}
	c.Stderr = &lockedWriter{mu: &mu, w: io.MultiWriter(stderr, tail)}

	err := c.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &commandError{code: exitErr.ExitCode(), stderr: strings.TrimSpace(tail.String()), err: err}
	}
	return fmt.Errorf("run %s: %w", args[0], err)
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
