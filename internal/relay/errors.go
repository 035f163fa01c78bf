// File: internal/relay/errors.go
package relay

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

// ErrTransport marks failures of the links to either remote peer: the
// backend websocket or the automation server.
var ErrTransport = errors.New("transport failure")

var errOutboundFull = errors.New("outbound queue full")

// TransportError carries the operation that hit a connection-level
// failure. It matches the ErrTransport sentinel and self-reports its
// taxonomy code.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Code places the failure in the shared error taxonomy.
func (e *TransportError) Code() schemas.ErrorCode { return schemas.CodeTransportFailure }

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
