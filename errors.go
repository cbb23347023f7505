package bag

import "errors"

var (
	// ErrNotFound means the referenced path, algorithm, or fetch entry is
	// not present in the bag.
	ErrNotFound = errors.New("bag: not found")

	// ErrAlreadyExists means the destination collides with an existing
	// payload file, staged file, or fetch entry.
	ErrAlreadyExists = errors.New("bag: already exists")

	// ErrOutOfScope means a path resolves outside the payload directory or
	// the bag root.
	ErrOutOfScope = errors.New("bag: path out of scope")

	// ErrProtectedPath means the operation targets a reserved tag file that
	// only the save machinery may touch.
	ErrProtectedPath = errors.New("bag: protected path")

	// ErrIsDirectory means a single-file operation was given a directory.
	ErrIsDirectory = errors.New("bag: is a directory")

	// ErrFormat means a stored value (tag, manifest line, version string)
	// does not parse as the expected type.
	ErrFormat = errors.New("bag: malformed value")

	// ErrInvariant means a consistency check failed, such as a bag saved
	// with no payload manifest algorithms or a fetch transfer that does
	// not match its expected length.
	ErrInvariant = errors.New("bag: invariant violation")
)
