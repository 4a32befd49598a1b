package cpio

import (
	"fmt"

	"github.com/airbridge/airdropd/lib/rand"
)

const (
	headerSize = 76
	magic      = "070707"

	modeDirBit  = 0o040000
	modeFileBit = 0o100000

	trailerName = "TRAILER!!!"
)

// entryType classifies a CPIO entry by the type bits of its mode field.
type entryType int

const (
	typeOther entryType = iota
	typeDirectory
	typeFile
)

// header is the parsed form of a 76-byte CPIO odc header.
type header struct {
	mode      uint32
	namesize  uint32
	filesize  uint32
	entryType entryType
}

// field offsets/widths within the 76-byte odc header, per spec.md §4.3.
var headerFields = struct {
	magic, device, inode, mode, uid, gid, nlink, rdev, mtime, namesize, filesize [2]int
}{
	magic:    [2]int{0, 6},
	device:   [2]int{6, 6},
	inode:    [2]int{12, 6},
	mode:     [2]int{18, 6},
	uid:      [2]int{24, 6},
	gid:      [2]int{30, 6},
	nlink:    [2]int{36, 6},
	rdev:     [2]int{42, 6},
	mtime:    [2]int{48, 11},
	namesize: [2]int{59, 6},
	filesize: [2]int{65, 11},
}

func parseHeader(b []byte) (header, error) {
	if len(b) != headerSize {
		return header{}, fmt.Errorf("cpio: header must be %d bytes, got %d", headerSize, len(b))
	}
	if string(b[headerFields.magic[0]:headerFields.magic[0]+headerFields.magic[1]]) != magic {
		return header{}, fmt.Errorf("%w: got %q", ErrBadMagic, b[:6])
	}

	mode, ok := rand.ParseOctal(field(b, headerFields.mode))
	if !ok {
		return header{}, fmt.Errorf("%w: mode", ErrBadOctal)
	}
	namesize, ok := rand.ParseOctal(field(b, headerFields.namesize))
	if !ok {
		return header{}, fmt.Errorf("%w: namesize", ErrBadOctal)
	}
	filesize, ok := rand.ParseOctal(field(b, headerFields.filesize))
	if !ok {
		return header{}, fmt.Errorf("%w: filesize", ErrBadOctal)
	}

	return header{
		mode:      mode,
		namesize:  namesize,
		filesize:  filesize,
		entryType: classify(mode),
	}, nil
}

func field(b []byte, f [2]int) []byte {
	return b[f[0] : f[0]+f[1]]
}

func classify(mode uint32) entryType {
	switch {
	case mode&modeDirBit == modeDirBit:
		return typeDirectory
	case mode&modeFileBit == modeFileBit:
		return typeFile
	default:
		return typeOther
	}
}
