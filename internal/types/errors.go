package types

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for the failure taxonomy. Adapters join one of these
// to the underlying cause so KindOf still works after wrapping.
var (
	ErrNetwork        = errors.New("network error")
	ErrAuth           = errors.New("auth error")
	ErrParse          = errors.New("parse error")
	ErrBudgetExceeded = errors.New("message exceeds channel budget")
	ErrInternal       = errors.New("internal error")
)

// ErrorKind is the operator-facing classification of a failure
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindNetwork        ErrorKind = "network"
	KindAuth           ErrorKind = "auth"
	KindParse          ErrorKind = "parse"
	KindBudgetExceeded ErrorKind = "budget_exceeded"
	KindInternal       ErrorKind = "internal"
)

// KindOf classifies err. Timeouts and dial failures count as network errors
// even when the adapter did not tag them.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	switch {
	case errors.Is(err, ErrBudgetExceeded):
		return KindBudgetExceeded
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrInternal):
		return KindInternal
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	return KindInternal
}

// Tag joins a sentinel to err. A nil err stays nil.
func Tag(sentinel, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return errors.Join(sentinel, err)
}
