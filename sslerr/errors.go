// Package sslerr defines the static error values returned by the object
// cache's loaders. Each wraps enough context via fmt.Errorf's %w to let a
// caller recover the kind with errors.Is while still printing a human
// readable diagnostic.
package sslerr

import "errors"

var (
	// ErrBadSyntax marks a reference string that could not be classified
	// or whose engine-kind payload is missing a required separator.
	ErrBadSyntax = errors.New("invalid syntax")

	// ErrOpen marks failure to open the backing file or memory buffer for
	// a key.
	ErrOpen = errors.New("cannot open")

	// ErrParse marks rejection of the input by the PEM/DER decoder.
	ErrParse = errors.New("parse failure")

	// ErrEmpty marks a chain loader (CA, CRL) that decoded zero objects.
	ErrEmpty = errors.New("no objects found")

	// ErrEngine marks an engine lookup or hardware key load failure.
	ErrEngine = errors.New("engine error")

	// ErrCallback marks a password callback invoked in the wrong
	// direction; this is a programmer error, not an input error.
	ErrCallback = errors.New("wrong callback direction")
)
