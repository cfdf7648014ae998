// Package fetchpipeline implements the per-chunk fetch/parse state machine:
// binary-fast-path-then-NDJSON-fallback parsing, driven by background
// goroutines whose results are collected on a channel so the owning
// streamer can apply them inside its single driver tick.
//
// The worker-per-request-plus-channel-drain shape is adapted from
// ChunkStreamer (internal/world/chunk_streamer.go), which runs a fixed pool
// of workers pulling ChunkCoord jobs off a channel and deleting their own
// entry from a mutex-guarded pending set on completion. This package
// generalizes that to one goroutine per fetch (since each fetch's lifetime
// is governed by its own cancellation handle, not a shared worker pool) and
// reports structured outcomes instead of mutating shared state directly, so
// the token-staleness check stays entirely inside the streamer's own
// critical section.
package fetchpipeline

import (
	"context"
	"errors"
	"path"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
	"github.com/peytontolbert/chunkstreamer/internal/contracts"
	"github.com/peytontolbert/chunkstreamer/internal/gate"
	"github.com/peytontolbert/chunkstreamer/internal/worldindex"
)

// Outcome is the terminal state a fetch/parse attempt reached.
type Outcome int

const (
	OutcomeAdmitted Outcome = iota
	OutcomeAborted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a completed (or aborted/failed) fetch reports back to the
// streamer. Token lets the streamer discard results superseded by a newer
// issuance for the same key.
type Result struct {
	Key     chunkgrid.Key
	Token   uint64
	Outcome Outcome
	Payload []float32
	Err     error
}

// Options carries the per-call knobs that come from streamer configuration.
type Options struct {
	PreferBinary       bool
	GatingEnabled      bool
	UsePersistentCache bool
}

// Pipeline executes chunk fetch/parse attempts and reports their outcomes.
// It holds no per-key bookkeeping of its own: ownership of "which keys are
// loading" stays entirely with the streamer.
type Pipeline struct {
	fetcher        contracts.AssetFetcher
	gateEval       *gate.Evaluator
	logger         *zap.Logger
	results        chan Result
	binaryDisabled atomic.Bool
}

// New builds a Pipeline. A nil logger is replaced with a no-op logger.
func New(fetcher contracts.AssetFetcher, gateEval *gate.Evaluator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:  fetcher,
		gateEval: gateEval,
		logger:   logger,
		results:  make(chan Result, 256),
	}
}

// Results returns the channel the streamer drains once per Update.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// Issue starts an asynchronous fetch/parse attempt for key and returns a
// cancel func the caller stores as the InflightRequest's cancellation
// handle. chunksDir is joined with the chunk's meta filenames to form the
// fetcher path.
func (p *Pipeline) Issue(parent context.Context, key chunkgrid.Key, meta worldindex.ChunkMeta, chunksDir string, token uint64, priority contracts.Priority, opts Options) context.CancelFunc {
	ctx, cancel := context.WithCancel(parent)
	go p.run(ctx, key, meta, chunksDir, token, priority, opts)
	return cancel
}

func (p *Pipeline) run(ctx context.Context, key chunkgrid.Key, meta worldindex.ChunkMeta, chunksDir string, token uint64, priority contracts.Priority, opts Options) {
	payload, err := p.fetchAndParse(ctx, key, meta, chunksDir, priority, opts)

	outcome := OutcomeAdmitted
	if err != nil {
		if errors.Is(err, context.Canceled) {
			outcome = OutcomeAborted
			err = nil
		} else {
			outcome = OutcomeFailed
			p.logger.Debug("chunk fetch failed",
				zap.String("key", key.String()), zap.Error(err))
		}
	} else {
		p.logger.Debug("chunk fetch admitted",
			zap.String("key", key.String()),
			zap.String("payloadSize", humanize.Bytes(uint64(len(payload)*4))))
	}
	p.results <- Result{Key: key, Token: token, Outcome: outcome, Payload: payload, Err: err}
}

func (p *Pipeline) fetchAndParse(ctx context.Context, key chunkgrid.Key, meta worldindex.ChunkMeta, chunksDir string, priority contracts.Priority, opts Options) ([]float32, error) {
	fetchOpts := contracts.FetchOptions{Priority: priority, UsePersistentCache: opts.UsePersistentCache}

	if opts.PreferBinary && meta.BinaryFile != "" && !p.binaryDisabled.Load() {
		payload, ok, err := p.tryBinary(ctx, meta, chunksDir, fetchOpts)
		if err != nil {
			return nil, err
		}
		if ok {
			return payload, nil
		}
		// BinaryUnavailable or BinaryMalformed: fall through to NDJSON.
	}
	return p.parseTextual(ctx, meta, chunksDir, fetchOpts, opts.GatingEnabled)
}

func (p *Pipeline) tryBinary(ctx context.Context, meta worldindex.ChunkMeta, chunksDir string, fetchOpts contracts.FetchOptions) (payload []float32, ok bool, err error) {
	fetchPath := path.Join(chunksDir, meta.BinaryFile)
	data, err := p.fetcher.FetchBytes(ctx, fetchPath, fetchOpts)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			// First 404 disables the binary fast path for the rest of this
			// Pipeline's lifetime (BinaryUnavailable).
			p.binaryDisabled.Store(true)
			return nil, false, nil
		}
		return nil, false, err
	}

	decoded, malformed := decodeBinary(data)
	if malformed {
		return nil, false, nil
	}
	return decoded, true, nil
}
