package cpio

import (
	"bytes"
	"io"

	"github.com/airbridge/airdropd/lib/rand"
)

// archiveEntry is a single file, directory, or trailer entry used to
// build a test odc archive in-memory, mirroring the byte layout
// spec.md §4.3 describes.
type archiveEntry struct {
	name string
	mode uint32
	data []byte
}

func regularFile(name string, data []byte) archiveEntry {
	return archiveEntry{name: name, mode: modeFileBit | 0o644, data: data}
}

func directory(name string) archiveEntry {
	return archiveEntry{name: name, mode: modeDirBit | 0o755}
}

func trailer() archiveEntry {
	return archiveEntry{name: trailerName}
}

// buildArchive renders entries as a CPIO odc byte stream.
func buildArchive(entries []archiveEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		name := e.name + "\x00"
		buf.WriteString(magic)
		buf.Write(rand.FormatOctal(0, 6))      // device
		buf.Write(rand.FormatOctal(0, 6))      // inode
		buf.Write(rand.FormatOctal(e.mode, 6)) // mode
		buf.Write(rand.FormatOctal(0, 6))      // uid
		buf.Write(rand.FormatOctal(0, 6))      // gid
		buf.Write(rand.FormatOctal(1, 6))      // nlink
		buf.Write(rand.FormatOctal(0, 6))      // rdev
		buf.Write(rand.FormatOctal(0, 11))     // mtime
		buf.Write(rand.FormatOctal(uint32(len(name)), 6))  // namesize
		buf.Write(rand.FormatOctal(uint32(len(e.data)), 11)) // filesize
		buf.WriteString(name)
		buf.Write(e.data)
	}
	return buf.Bytes()
}

// oneByteReader forces callers of Extract to see the archive delivered
// one byte per Read, to exercise the multi-buffer equivalence property.
type oneByteReader struct {
	data []byte
	pos  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}
