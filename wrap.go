package notifyer

import "context"

// Wrap returns a function that calls fn and reports its failure. The
// returned function has the same contract as fn.
func (r *Reporter) Wrap(fn func() error) func() error {
	name := r.nameFor(fn)
	return func() error {
		ctx := context.Background()
		return r.run(ctx, ctx, name, func(context.Context) error {
			return fn()
		})
	}
}

// WrapContext is like Wrap for functions that take a context. The report is
// still sent when ctx is cancelled, bounded by the configured timeout.
func (r *Reporter) WrapContext(fn func(context.Context) error) func(context.Context) error {
	name := r.nameFor(fn)
	return func(ctx context.Context) error {
		return r.run(ctx, context.WithoutCancel(ctx), name, fn)
	}
}

// WrapValue is Wrap for functions that also return a value. The value is
// passed through unchanged, also when fn fails.
func WrapValue[T any](r *Reporter, fn func() (T, error)) func() (T, error) {
	name := r.nameFor(fn)
	return func() (T, error) {
		var v T
		ctx := context.Background()
		err := r.run(ctx, ctx, name, func(context.Context) error {
			var err error
			v, err = fn()
			return err
		})
		return v, err
	}
}

func WrapValueContext[T any](r *Reporter, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	name := r.nameFor(fn)
	return func(ctx context.Context) (T, error) {
		var v T
		err := r.run(ctx, context.WithoutCancel(ctx), name, func(ctx context.Context) error {
			var err error
			v, err = fn(ctx)
			return err
		})
		return v, err
	}
}
