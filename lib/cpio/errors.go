package cpio

import "errors"

var (
	// ErrBadMagic is returned when a header's magic field is not "070707".
	ErrBadMagic = errors.New("cpio: bad magic")
	// ErrBadOctal is returned when a fixed-width octal header field
	// contains a non-octal character.
	ErrBadOctal = errors.New("cpio: bad octal field")
	// ErrTruncated is returned when the stream ends before a TRAILER!!!
	// entry is reached.
	ErrTruncated = errors.New("cpio: truncated archive")
	// ErrPathTraversal is returned when an entry's name resolves outside
	// the extraction root.
	ErrPathTraversal = errors.New("cpio: entry escapes extraction root")
)
