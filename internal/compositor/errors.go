package compositor

import "errors"

// Error taxonomy of the compositor filter. Callers compare with errors.Is;
// returned errors may wrap these with context.
var (
	// ErrServiceError is an unrecoverable setup failure: missing
	// configuration store, empty module registry, engine construction
	// failure. It aborts filter startup.
	ErrServiceError = errors.New("compositor: service error")

	// ErrNotSupported is a policy rejection of one stream: removal,
	// category change after binding, unknown category/codec combination,
	// or a stream conflicting with the scene's mode.
	ErrNotSupported = errors.New("compositor: not supported")

	// ErrNonCompliantBitstream reports a structured stream without decoder
	// configuration, or a secondary structured stream configured before
	// its primary stream.
	ErrNonCompliantBitstream = errors.New("compositor: non compliant bitstream")
)
