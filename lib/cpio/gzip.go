package cpio

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// NewGzipReader wraps r, a gzip-compressed byte stream, in an inline
// decompressor. Apple's AirDrop sender compresses the Upload body but
// never sets Content-Encoding, so callers must unwrap it themselves
// before handing the result to Extract.
func NewGzipReader(r io.Reader) (io.Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("cpio: opening gzip stream: %w", err)
	}
	return gz, nil
}
