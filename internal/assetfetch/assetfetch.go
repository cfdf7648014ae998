// Package assetfetch is a reference contracts.AssetFetcher backed by the
// local filesystem, for the demo binary and for tests that want a real (if
// trivial) implementation instead of a stub. It follows the blockmodel
// loader's approach to error reporting (fmt.Errorf with %w) but streams
// NDJSON line-by-line with bufio.Scanner instead of slurping the whole file,
// since chunk payloads are the hot path this module exists to stream
// efficiently.
package assetfetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peytontolbert/chunkstreamer/internal/contracts"
)

// FileFetcher resolves fetch paths relative to a root directory on disk.
type FileFetcher struct {
	root string
}

// New returns a FileFetcher rooted at root.
func New(root string) *FileFetcher {
	return &FileFetcher{root: root}
}

func (f *FileFetcher) resolve(requestPath string) string {
	return filepath.Join(f.root, filepath.FromSlash(requestPath))
}

// FetchBytes reads an entire file into memory, translating a missing file
// into contracts.ErrNotFound.
func (f *FileFetcher) FetchBytes(ctx context.Context, requestPath string, opts contracts.FetchOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.resolve(requestPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, contracts.ErrNotFound
		}
		return nil, fmt.Errorf("assetfetch: reading %q: %w", requestPath, err)
	}
	return data, nil
}

// FetchTextNDJSON streams a file line by line, invoking onObject for each
// non-empty line and stopping early if onObject or ctx reports an error.
func (f *FileFetcher) FetchTextNDJSON(ctx context.Context, requestPath string, opts contracts.FetchOptions, onObject func(line []byte) error) error {
	file, err := os.Open(f.resolve(requestPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contracts.ErrNotFound
		}
		return fmt.Errorf("assetfetch: opening %q: %w", requestPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// World chunk exports can carry entity-dense lines well past bufio's
	// 64KiB default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := onObject(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("assetfetch: scanning %q: %w", requestPath, err)
	}
	return nil
}
