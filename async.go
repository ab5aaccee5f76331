package notifyer

import "context"

// Result carries the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs fn on its own goroutine and reports its failure. The returned
// channel receives fn's error (nil on success) and is then closed.
//
// Unlike the Wrap family, the report is sent with ctx: cancelling ctx may
// abort a delivery in flight. A panic in fn is reported and re-raised on
// the goroutine, exactly as it would be without the reporter.
func (r *Reporter) Go(ctx context.Context, fn func(context.Context) error) <-chan error {
	name := r.nameFor(fn)
	out := make(chan error, 1)
	go func() {
		defer close(out)
		out <- r.run(ctx, ctx, name, fn)
	}()
	return out
}

// Async returns a function that starts fn on its own goroutine each time it
// is called. See Reporter.Go for the delivery semantics.
func Async[T any](r *Reporter, fn func(context.Context) (T, error)) func(context.Context) <-chan Result[T] {
	name := r.nameFor(fn)
	return func(ctx context.Context) <-chan Result[T] {
		out := make(chan Result[T], 1)
		go func() {
			defer close(out)
			var res Result[T]
			res.Err = r.run(ctx, ctx, name, func(ctx context.Context) error {
				var err error
				res.Value, err = fn(ctx)
				return err
			})
			out <- res
		}()
		return out
	}
}
