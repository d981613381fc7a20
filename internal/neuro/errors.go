// Package neuro provides the error kinds and the small numeric toolbox shared
// by the DICOM-to-NIfTI conversion packages.
package neuro

import "errors"

// Error kinds used throughout the conversion engine. Callers classify
// failures with errors.Is; diagnostic context is added with fmt.Errorf("%w: ...").
var (
	// ErrBadFileFormat reports malformed or inconsistent input bytes.
	ErrBadFileFormat = errors.New("bad file format")

	// ErrParameterOutOfRange reports inconsistent geometry, duplicate keys,
	// or programmatic misuse.
	ErrParameterOutOfRange = errors.New("parameter out of range")

	// ErrInexistentItem reports a reference to a missing tag or instance.
	ErrInexistentItem = errors.New("inexistent item")

	// ErrBadSequenceOfCalls reports an API used in the wrong temporal order.
	ErrBadSequenceOfCalls = errors.New("bad sequence of calls")

	// ErrNullPointer reports a contract violation from an injected collaborator.
	ErrNullPointer = errors.New("null pointer")

	// ErrNotImplemented reports an unsupported pixel format or geometry.
	ErrNotImplemented = errors.New("not implemented")

	// ErrIncompatibleImageFormat reports per-slice pixel-format disagreement.
	ErrIncompatibleImageFormat = errors.New("incompatible image format")

	// ErrInternalError reports an unreachable invariant violation.
	ErrInternalError = errors.New("internal error")
)
