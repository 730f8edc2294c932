package fault

import "errors"

// Sentinel errors for fault handling.
var (
	// ErrUnknownKind is returned when parsing an unrecognized kind name.
	ErrUnknownKind = errors.New("fault: unknown kind")

	// ErrUnknownSeverity is returned when parsing an unrecognized severity name.
	ErrUnknownSeverity = errors.New("fault: unknown severity")

	// ErrNilCause stands in for a nil raw error passed to Handle.
	ErrNilCause = errors.New("fault: nil cause")

	// ErrSinkRejected is returned by HTTPSink when the endpoint answers with a
	// non-2xx status.
	ErrSinkRejected = errors.New("fault: sink rejected report")

	// ErrSinkNotConfigured is returned when an HTTPSink has no endpoint.
	ErrSinkNotConfigured = errors.New("fault: sink endpoint not configured")
)
