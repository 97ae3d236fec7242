package services

// UpstreamKind classifies why a call to LM Studio failed. It is used for
// logs and metrics only; clients always see one failure shape.
type UpstreamKind int

const (
	// UpstreamUnreachable covers dial, DNS, timeout and transport failures.
	UpstreamUnreachable UpstreamKind = iota
	// UpstreamProtocol is a non-2xx status from LM Studio.
	UpstreamProtocol
	// UpstreamShape is a body that is not JSON or lacks choices[0].message.content.
	UpstreamShape
)

func (k UpstreamKind) String() string {
	switch k {
	case UpstreamUnreachable:
		return "unreachable"
	case UpstreamProtocol:
		return "protocol"
	case UpstreamShape:
		return "shape"
	default:
		return "unknown"
	}
}

// UpstreamError is the single error type returned for every failed relay.
type UpstreamError struct {
	Kind UpstreamKind
	Err  error
}

func (e *UpstreamError) Error() string {
	return "LM Studio call failed: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
