package suggest

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindDisabled    Kind = "disabled"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindTransport   Kind = "transport"
	KindMalformed   Kind = "malformed"
	KindSchema      Kind = "schema"
	KindUnknown     Kind = "unknown"
)

var ErrDisabled = errors.New("ai suggestions disabled: no api key configured")

// Error is a failure at the generative boundary, including responses that
// are not valid JSON or do not match the requested schema.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("ai %s: %v", e.Kind, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err, or "" when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// classify turns a provider SDK error into an *Error by inspecting its text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, ErrDisabled) {
		return &Error{Kind: KindDisabled, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "api key", "permission denied", "forbidden"):
		return &Error{Kind: KindAuth, Err: err}
	case containsAny(msg, "429", "rate limit", "quota", "resource exhausted", "too many requests"):
		return &Error{Kind: KindRateLimited, Err: err}
	case containsAny(msg, "connection", "eof", "timeout", "deadline", "dial", "refused", "canceled"):
		return &Error{Kind: KindTransport, Err: err}
	default:
		return &Error{Kind: KindUnknown, Err: err}
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
