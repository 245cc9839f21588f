package model

import (
	"errors"
	"fmt"
)

// Fetch error kinds. Match with errors.Is.
var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrRPC            = errors.New("rpc error")
	ErrTimeout        = errors.New("rpc timeout")
	ErrTransport      = errors.New("transport error")
	ErrDecode         = errors.New("decode error")
)

// FetchError is the single error type surfaced by an account fetch.
type FetchError struct {
	Kind    error
	Network string
	Address string
	Err     error
}

func NewFetchError(kind error, account TrackedAccount, err error) *FetchError {
	return &FetchError{
		Kind:    kind,
		Network: account.Network,
		Address: account.Address,
		Err:     err,
	}
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s on %s", e.Kind, e.Address, e.Network)
	}
	return fmt.Sprintf("%s: %s on %s: %v", e.Kind, e.Address, e.Network, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable is false for configuration gaps that the next cycle cannot fix.
func (e *FetchError) Retryable() bool {
	return !errors.Is(e.Kind, ErrUnknownNetwork)
}

// ErrorKind names the taxonomy bucket of err, "unknown" when it has none.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownNetwork):
		return "unknown_network"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRPC):
		return "rpc"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
