// Package notifyer reports failed function calls to Telegram.
//
// A Reporter wraps a function, runs it and, when the function returns a
// matching error or panics, sends a report with the header, the function
// name and the error chain to every configured chat. The original error is
// always returned unchanged and panics are re-raised with the original value.
// Delivery is best-effort: failures are logged and never reach the caller.
//
//	r, err := notifyer.New(notifyer.WithHeader("billing worker crashed"))
//	if err != nil {
//		return err
//	}
//	run := r.Wrap(worker.Run)
//	if err := run(); err != nil {
//		return err
//	}
//
// Token and chat ids default to the EASY_NOTIFYER_TELEGRAM_TOKEN and
// EASY_NOTIFYER_TELEGRAM_CHAT_ID (comma-separated) environment variables.
//
// To send plain messages or files to the same chats, use the telegram
// subpackage.
package notifyer
