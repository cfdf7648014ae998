package assetfetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/peytontolbert/chunkstreamer/internal/contracts"
)

func TestFetchBytesReadsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "chunk.bin"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	f := New(dir)

	data, err := f.FetchBytes(context.Background(), "chunk.bin", contracts.FetchOptions{})
	if err != nil {
		t.Fatalf("FetchBytes: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("expected 3 bytes, got %d", len(data))
	}
}

func TestFetchBytesMissingReturnsNotFound(t *testing.T) {
	f := New(t.TempDir())
	_, err := f.FetchBytes(context.Background(), "missing.bin", contracts.FetchOptions{})
	if !errors.Is(err, contracts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchTextNDJSONStreamsLines(t *testing.T) {
	dir := t.TempDir()
	content := "{\"position\":[1,2,3]}\n{\"position\":[4,5,6]}\n"
	if err := os.WriteFile(filepath.Join(dir, "chunk.ndjson"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	f := New(dir)

	var lines [][]byte
	err := f.FetchTextNDJSON(context.Background(), "chunk.ndjson", contracts.FetchOptions{}, func(line []byte) error {
		cp := append([]byte(nil), line...)
		lines = append(lines, cp)
		return nil
	})
	if err != nil {
		t.Fatalf("FetchTextNDJSON: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestFetchTextNDJSONMissingReturnsNotFound(t *testing.T) {
	f := New(t.TempDir())
	err := f.FetchTextNDJSON(context.Background(), "missing.ndjson", contracts.FetchOptions{}, func([]byte) error { return nil })
	if !errors.Is(err, contracts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchTextNDJSONStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	content := "{\"position\":[1,2,3]}\n{\"position\":[4,5,6]}\n"
	if err := os.WriteFile(filepath.Join(dir, "chunk.ndjson"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	f := New(dir)

	boom := errors.New("boom")
	calls := 0
	err := f.FetchTextNDJSON(context.Background(), "chunk.ndjson", contracts.FetchOptions{}, func(line []byte) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call before stopping, got %d", calls)
	}
}
