package cpio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func extractBoth(t *testing.T, data []byte, root string) {
	t.Helper()

	oneShot := t.TempDir()
	got, err := Extract(context.Background(), bytes.NewReader(data), oneShot)
	if err != nil {
		t.Fatalf("Extract (single buffer): %v", err)
	}

	byteAtATime := t.TempDir()
	gotByte, err := Extract(context.Background(), &oneByteReader{data: data}, byteAtATime)
	if err != nil {
		t.Fatalf("Extract (1-byte buffers): %v", err)
	}

	if len(got) != len(gotByte) {
		t.Fatalf("file count differs: %d vs %d", len(got), len(gotByte))
	}

	for i := range got {
		relA, _ := filepath.Rel(oneShot, got[i])
		relB, _ := filepath.Rel(byteAtATime, gotByte[i])
		if relA != relB {
			t.Fatalf("path %d differs: %q vs %q", i, relA, relB)
		}
		a, errA := os.ReadFile(got[i])
		b, errB := os.ReadFile(gotByte[i])
		if errA != nil || errB != nil {
			t.Fatalf("reading extracted files: %v / %v", errA, errB)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("content of %q differs between single-buffer and byte-at-a-time extraction", relA)
		}
	}
}

func TestExtractSingleFile(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5a}, 33)
	data := buildArchive([]archiveEntry{
		regularFile("test.bin", payload),
		trailer(),
	})

	root := t.TempDir()
	created, err := Extract(context.Background(), bytes.NewReader(data), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("got %d files, want 1", len(created))
	}

	got, err := os.ReadFile(created[0])
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("content mismatch: got %d bytes, want %d", len(got), len(payload))
	}

	extractBoth(t, data, root)
}

func TestExtractManySmallFiles(t *testing.T) {
	var entries []archiveEntry
	for i := 0; i < 100; i++ {
		entries = append(entries, regularFile(filenameN(i), bytes.Repeat([]byte{byte(i)}, 1024)))
	}
	entries = append(entries, trailer())
	data := buildArchive(entries)

	root := t.TempDir()
	created, err := Extract(context.Background(), bytes.NewReader(data), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 100 {
		t.Fatalf("got %d files, want 100", len(created))
	}
	for _, p := range created {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %q: %v", p, err)
		}
		if info.Size() != 1024 {
			t.Errorf("%q size = %d, want 1024", p, info.Size())
		}
	}
}

func filenameN(n int) string {
	const digits = "0123456789"
	return "file" + string(digits[n/10]) + string(digits[n%10]) + ".bin"
}

func TestExtractLargeFiles(t *testing.T) {
	var entries []archiveEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, regularFile(filenameN(i), bytes.Repeat([]byte{0xab}, 10240)))
	}
	entries = append(entries, trailer())
	data := buildArchive(entries)

	root := t.TempDir()
	created, err := Extract(context.Background(), bytes.NewReader(data), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("got %d files, want 5", len(created))
	}
	for _, p := range created {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %q: %v", p, err)
		}
		if info.Size() != 10240 {
			t.Errorf("%q size = %d, want 10240", p, info.Size())
		}
	}
}

func TestExtractNestedStructure(t *testing.T) {
	data := buildArchive([]archiveEntry{
		directory("test1"),
		regularFile("test1/test.txt", []byte("hello")),
		directory("test2"),
		regularFile("test2/test.log", []byte("log")),
		directory("test3"),
		directory("test3/test4"),
		regularFile("test3/test4/test.csv", []byte("a,b,c")),
		trailer(),
	})

	root := t.TempDir()
	created, err := Extract(context.Background(), bytes.NewReader(data), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("got %d files, want 3 (directories should be omitted)", len(created))
	}
	for _, want := range []string{
		filepath.Join(root, "test1", "test.txt"),
		filepath.Join(root, "test2", "test.log"),
		filepath.Join(root, "test3", "test4", "test.csv"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("expected %q to exist: %v", want, err)
		}
	}

	extractBoth(t, data, root)
}

func TestExtractPathTraversalRejected(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"/etc/passwd",
		"..\\..\\windows\\system32\\evil.dll",
		"a/../../b",
	}

	for _, name := range cases {
		t.Run(name, func(t *testing.T) {
			data := buildArchive([]archiveEntry{
				regularFile(name, []byte("pwned")),
				trailer(),
			})
			root := t.TempDir()
			_, err := Extract(context.Background(), bytes.NewReader(data), root)
			if err == nil {
				t.Fatalf("expected path traversal error for %q", name)
			}
		})
	}
}

func TestExtractSkipsDotEntries(t *testing.T) {
	data := buildArchive([]archiveEntry{
		{name: ".", mode: modeDirBit},
		{name: "..", mode: modeDirBit},
		regularFile("keep.txt", []byte("x")),
		trailer(),
	})
	root := t.TempDir()
	created, err := Extract(context.Background(), bytes.NewReader(data), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("got %d files, want 1", len(created))
	}
}

func TestExtractBadMagic(t *testing.T) {
	bad := append([]byte("XXXXXX"), make([]byte, headerSize-6)...)
	_, err := Extract(context.Background(), bytes.NewReader(bad), t.TempDir())
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestExtractTruncated(t *testing.T) {
	data := buildArchive([]archiveEntry{
		regularFile("test.bin", bytes.Repeat([]byte{1}, 100)),
		trailer(),
	})
	truncated := data[:len(data)-50]
	_, err := Extract(context.Background(), bytes.NewReader(truncated), t.TempDir())
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestExtractZeroLengthFile(t *testing.T) {
	data := buildArchive([]archiveEntry{
		regularFile("empty.bin", nil),
		trailer(),
	})
	root := t.TempDir()
	created, err := Extract(context.Background(), bytes.NewReader(data), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("got %d files, want 1", len(created))
	}
	info, err := os.Stat(created[0])
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}
