package scrape

import (
	"errors"
	"fmt"

	"github.com/dstanway/grocermon/internal/record"
)

// FailureKind categorizes why an adapter produced no record.
type FailureKind string

const (
	// FailNetwork covers timeouts, connection errors and non-2xx statuses.
	FailNetwork FailureKind = "network"

	// FailParse covers malformed response bodies and missing expected
	// fields.
	FailParse FailureKind = "parse"

	// FailNoMatch means every extraction strategy was exhausted.
	FailNoMatch FailureKind = "no_match"

	// FailStaleEndpoint means the cached API address stopped working and
	// rediscovery did not rescue the request.
	FailStaleEndpoint FailureKind = "stale_endpoint"

	// FailNotTracked means the item carries no mapping for this source
	// (no product ID, no category URL). No fetch is attempted.
	FailNotTracked FailureKind = "not_tracked"
)

// Error is the only error type an adapter lets escape. The orchestrator
// logs it and treats the (item, store) pair as absent for the run; nothing
// above an adapter ever sees a transport or parser error directly.
type Error struct {
	Store record.Store
	Item  string
	Kind  FailureKind
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Store, e.Item, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Store, e.Item, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind extracts the failure kind from an error chain. Unknown errors
// report FailNetwork, the conservative default for retry accounting.
func Kind(err error) FailureKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailNetwork
}

func failure(store record.Store, item string, kind FailureKind, err error) *Error {
	return &Error{Store: store, Item: item, Kind: kind, Err: err}
}
