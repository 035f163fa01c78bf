// File: internal/bridge/errors.go
package bridge

import (
	"errors"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/platform"
	"github.com/xkilldash9x/neurodesk/internal/region"
)

// ErrInvalidParameter marks agent-supplied parameters rejected by
// validation. Out-of-range values are rejected, never clamped: silently
// adjusting what the agent asked for produces replies it cannot correlate
// with its request.
var ErrInvalidParameter = errors.New("invalid parameter")

// coder lets error types from packages this one does not import declare
// their own taxonomy code. The relay transport errors implement it.
type coder interface {
	Code() schemas.ErrorCode
}

// classify maps an error onto the taxonomy code used in structured logs.
func classify(err error) schemas.ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidParameter):
		return schemas.CodeInvalidParameter
	case errors.Is(err, platform.ErrUnavailable):
		return schemas.CodeCapabilityUnavailable
	case errors.Is(err, region.ErrCaptureTimeout):
		return schemas.CodeCaptureTimeout
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return schemas.CodeUnexpected
}
