package trackerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers and for the HTTP boundary.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: bad or missing input, user-correctable.
	KindValidation
	// KindCarrierDetection: identifier matched no known carrier format.
	KindCarrierDetection
	// KindConfiguration: required credentials/settings missing; fatal
	// until an operator fixes the config.
	KindConfiguration
	// KindUpstreamAuth: provider rejected authentication, or a terminal
	// second-factor / bot-verification challenge was detected. Never
	// retried by the system.
	KindUpstreamAuth
	// KindUpstreamFetch: network/transport failure reaching a provider.
	// Safe to retry at the caller's discretion.
	KindUpstreamFetch
	// KindUpstreamParse: provider page structure unrecognized and no
	// status text could be extracted either.
	KindUpstreamParse
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf walks the error chain and returns the first classified kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a failure to its response code: user-correctable input
// problems are 400, everything upstream/operational is 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindCarrierDetection:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
