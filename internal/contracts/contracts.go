// Package contracts defines the interfaces the streamer calls into but does
// not implement: the renderer-owned sink and the host-owned asset fetcher.
// Keeping them in their own leaf package lets fetchpipeline, residency, and
// streamer all depend on the contracts without depending on each other.
package contracts

import (
	"context"
	"errors"

	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
)

// ErrNotFound is returned by AssetFetcher.FetchBytes when the requested
// asset does not exist (e.g. an HTTP 404 or a missing file). The pipeline
// uses it to distinguish "binary companion absent" from a genuine fetch
// failure.
var ErrNotFound = errors.New("contracts: asset not found")

// Priority classifies how urgently a chunk should be fetched relative to
// others competing for the fetcher's own concurrency limiter.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// FetchOptions carries the per-request knobs the fetcher needs; Cancel is
// observed via the ctx passed to each method, not a separate field, so that
// cancellation composes with the standard library the way the rest of the
// module's concurrency does.
type FetchOptions struct {
	Priority           Priority
	UsePersistentCache bool
}

// ChunkSink receives admitted chunk payloads and eviction notices from the
// renderer's point of view. Payload is a dense array of (x,y,z) triples
// flattened into a single float32 slice.
type ChunkSink interface {
	Admit(key chunkgrid.Key, payload []float32)
	Drop(key chunkgrid.Key)
}

// AssetFetcher streams chunk payloads from wherever the host keeps them
// (HTTP, disk, a persistent cache). Implementations must stop producing
// bytes/objects promptly once ctx is done.
type AssetFetcher interface {
	// FetchTextNDJSON streams the raw bytes of each NDJSON line to
	// onObject; decoding the JSON is left to the caller. If onObject
	// returns an error, iteration stops and that error is returned.
	FetchTextNDJSON(ctx context.Context, path string, opts FetchOptions, onObject func(line []byte) error) error
	// FetchBytes reads an entire asset into memory, returning ErrNotFound
	// when it does not exist.
	FetchBytes(ctx context.Context, path string, opts FetchOptions) ([]byte, error)
}
