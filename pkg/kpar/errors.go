package kpar

import "errors"

var (
	// ErrCorruptArchive indicates a structural or checksum mismatch in a
	// kpar container. A corrupt archive is never partially extracted.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrUnsupportedCodec indicates an entry compressed with a method
	// this build cannot decode. Unknown method tags are a hard failure,
	// not a best-effort skip: a partially-extracted project is unsafe to
	// use as a dependency.
	ErrUnsupportedCodec = errors.New("unsupported compression method")
)
