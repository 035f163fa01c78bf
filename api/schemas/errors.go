package schemas

// ErrorCode classifies a failure for structured logs and agent-facing
// results. Codes are coarse on purpose: the agent needs to know whether to
// retry, rephrase, or give up, not which internal call failed.
type ErrorCode string

const (
	// CodeCapabilityUnavailable marks a platform capability that is absent
	// on this host. Handlers degrade to empty results.
	CodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"

	// CodeCaptureTimeout marks a screenshot that exceeded its budget. A
	// placeholder is substituted and the cycle continues.
	CodeCaptureTimeout ErrorCode = "CAPTURE_TIMEOUT"

	// CodeInvalidParameter marks an agent-supplied parameter rejected by
	// validation. Only the offending request fails.
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// CodeTransportFailure marks a websocket dial, send or receive error.
	CodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"

	// CodeUnexpected is everything else, caught at a cycle boundary.
	CodeUnexpected ErrorCode = "UNEXPECTED"
)
