package notifyer

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/0x0BSoD/easyNotifyer/internal/config"
)

// ConfigError is returned by New when the token or the chat ids cannot be
// resolved, or when an option holds an unsupported value.
type ConfigError = config.Error

// ErrConfig matches every *ConfigError with errors.Is.
var ErrConfig = config.ErrConfig

// PanicError is the error reported for a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func (e *PanicError) StackTrace() []byte {
	return e.Stack
}

// Matcher decides whether an error is reported.
type Matcher func(err error) bool

// Is matches errors for which errors.Is(err, target) holds.
func Is(target error) Matcher {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

// As matches errors that have an E in their chain.
func As[E error]() Matcher {
	return func(err error) bool {
		var e E
		return errors.As(err, &e)
	}
}

// Panics matches recovered panics.
func Panics() Matcher {
	return As[*PanicError]()
}

func matchAny(matchers []Matcher, err error) bool {
	if len(matchers) == 0 {
		return true
	}
	return lo.SomeBy(matchers, func(m Matcher) bool {
		return m(err)
	})
}
