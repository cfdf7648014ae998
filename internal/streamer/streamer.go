// Package streamer is the facade the host drives once per tick: it owns
// every piece of mutable state (in-flight handles, loaded-key bookkeeping,
// the issuance token counter) and composes chunkgrid, wantset, residency,
// fetchpipeline and gate into a single Update call. The
// facade-composing-independent-packages shape, and the rule that only the
// driver's own goroutine touches this state, follows the World type
// (internal/world/world.go), which is the sole owner of
// ChunkStore/ChunkStreamer state and is only ever driven from the main
// loop.
package streamer

import (
	"context"

	"go.uber.org/zap"

	"github.com/peytontolbert/chunkstreamer/internal/camera"
	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
	"github.com/peytontolbert/chunkstreamer/internal/contracts"
	"github.com/peytontolbert/chunkstreamer/internal/fetchpipeline"
	"github.com/peytontolbert/chunkstreamer/internal/gate"
	"github.com/peytontolbert/chunkstreamer/internal/residency"
	"github.com/peytontolbert/chunkstreamer/internal/wantset"
	"github.com/peytontolbert/chunkstreamer/internal/worldindex"
)

// inflightRequest tracks one outstanding fetch/parse attempt.
type inflightRequest struct {
	token  uint64
	cancel context.CancelFunc
}

// Streamer is the top-level chunk residency controller. All of its mutable
// bookkeeping (loading, loaded, nextToken) is touched exclusively from
// Update; concurrent access from other goroutines is undefined except
// through Stats and SetTimeWeather, which are safe to call from any
// goroutine.
type Streamer struct {
	cfg     *Config
	fetcher contracts.AssetFetcher
	metrics Metrics
	log     *zap.Logger

	index    *worldindex.Index
	gateEval *gate.Evaluator
	pipeline *fetchpipeline.Pipeline

	loading   map[chunkgrid.Key]*inflightRequest
	loaded    map[chunkgrid.Key]struct{}
	nextToken uint64

	stats statsBox
}

// New builds a Streamer bound to a Config and asset fetcher. Call Init
// before the first Update to load the world index and gate table.
func New(fetcher contracts.AssetFetcher, cfg *Config, metrics Metrics, logger *zap.Logger) *Streamer {
	if cfg == nil {
		cfg = NewConfig()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{
		cfg:     cfg,
		fetcher: fetcher,
		metrics: metrics,
		log:     logger,
		loading: make(map[chunkgrid.Key]*inflightRequest),
		loaded:  make(map[chunkgrid.Key]struct{}),
	}
}

// Init loads the world index and optional gate table. gatePath may be empty,
// in which case gating fails open for every archetype. A failure here
// leaves the Streamer usable but permanently unable to produce a non-empty
// want-set, since index is nil.
func (s *Streamer) Init(indexPath, gatePath string) error {
	idx, err := worldindex.Load(indexPath)
	if err != nil {
		return err
	}
	var table gate.Table
	if gatePath != "" {
		table, err = worldindex.LoadGateTable(gatePath)
		if err != nil {
			return err
		}
	}
	s.index = idx
	s.gateEval = gate.NewEvaluator(table)
	s.pipeline = fetchpipeline.New(s.fetcher, s.gateEval, s.log)
	if len(table) > 0 {
		// Binary chunks carry no per-entity archetype hash, so they can
		// never be gated; a non-empty gate table forcibly disables the
		// binary fast path on this Streamer's Config.
		s.cfg.lockPreferBinary()
	}
	return nil
}

// Stats returns a snapshot of the fetch counters. Safe to call from any
// goroutine.
func (s *Streamer) Stats() Stats {
	return s.stats.snapshot()
}

// SetTimeWeather updates the gate evaluator's hour/weather and reports
// whether anything actually changed. Safe to call from any goroutine; it
// only touches the gate evaluator's own state, which Update reads but never
// mutates.
func (s *Streamer) SetTimeWeather(hour *int, weather *string) bool {
	if s.gateEval == nil {
		return false
	}
	return s.gateEval.SetTimeWeather(hour, weather)
}

// GetWantedKeys computes (without mutating any streamer state) the ordered
// want-set for the given pose, for host-side debugging/telemetry.
func (s *Streamer) GetWantedKeys(pose camera.Pose, model camera.ModelTransform) []chunkgrid.Key {
	if s.index == nil {
		return nil
	}
	cfg := s.cfg.snapshot()
	result := wantset.Build(s.index.Grid(), pose, model, wantset.Config{
		RadiusChunks:         cfg.radiusChunks,
		EnableFrustumCulling: cfg.enableFrustumCulling,
	}, nil)
	return result.Keys
}

// Update is the single driver tick: it drains fetch-pipeline results,
// recomputes the want-set, evicts what fell out of it, cancels in-flight
// fetches that fell out of it, trims any residual overflow past the hard
// cap, and issues new fetches up to the per-tick budget. It must be called
// from one goroutine at a time.
func (s *Streamer) Update(ctx context.Context, pose camera.Pose, model camera.ModelTransform, sink contracts.ChunkSink) {
	if s.index == nil || s.pipeline == nil {
		return
	}
	cfg := s.cfg.snapshot()

	s.drainResults(sink)

	result := wantset.Build(s.index.Grid(), pose, model, wantset.Config{
		RadiusChunks:         cfg.radiusChunks,
		EnableFrustumCulling: cfg.enableFrustumCulling,
	}, nil)
	wantedSet := make(map[chunkgrid.Key]struct{}, len(result.Keys))
	for _, k := range result.Keys {
		wantedSet[k] = struct{}{}
	}

	for _, k := range residency.Unwanted(s.loaded, wantedSet) {
		s.evict(k, sink)
	}

	for _, k := range residency.CancelableInflight(s.loadingKeySet(), wantedSet) {
		s.cancelInflight(k)
	}

	for _, k := range residency.TrimExcess(s.loaded, result.Keys, cfg.maxLoadedChunks) {
		s.evict(k, sink)
	}

	threshold := 2*cfg.radiusChunks + 1
	if threshold < 9 {
		threshold = 9
	}
	issuable := residency.Issuable(result.Keys, s.loaded, s.loadingKeySet(), cfg.maxNewLoadsPerUpdate)
	for _, k := range issuable {
		meta, ok := s.index.Chunks[k]
		if !ok {
			continue
		}
		idx := indexOf(result.Keys, k)
		priority := contracts.PriorityLow
		if idx >= 0 && idx < threshold {
			priority = contracts.PriorityHigh
		}
		s.issue(ctx, k, meta, cfg, priority)
	}

	s.metrics.SetResidentCount(len(s.loaded))
	s.metrics.SetInflightCount(len(s.loading))
}

func (s *Streamer) drainResults(sink contracts.ChunkSink) {
	for {
		select {
		case res := <-s.pipeline.Results():
			s.applyResult(res, sink)
		default:
			return
		}
	}
}

func (s *Streamer) applyResult(res fetchpipeline.Result, sink contracts.ChunkSink) {
	req, ok := s.loading[res.Key]
	if !ok || req.token != res.Token {
		return // superseded or already cleaned up; a stale result is a no-op
	}
	delete(s.loading, res.Key)

	switch res.Outcome {
	case fetchpipeline.OutcomeAdmitted:
		s.loaded[res.Key] = struct{}{}
		sink.Admit(res.Key, res.Payload)
		s.stats.recordLoaded()
		s.metrics.ObserveLoaded()
	case fetchpipeline.OutcomeAborted:
		s.stats.recordAborted()
		s.metrics.ObserveAborted()
	case fetchpipeline.OutcomeFailed:
		s.stats.recordFailed(res.Err)
		s.metrics.ObserveFailed()
		s.log.Debug("chunk load failed", zap.String("key", res.Key.String()), zap.Error(res.Err))
	}
}

func (s *Streamer) evict(k chunkgrid.Key, sink contracts.ChunkSink) {
	if _, ok := s.loaded[k]; !ok {
		return
	}
	delete(s.loaded, k)
	sink.Drop(k)
}

func (s *Streamer) cancelInflight(k chunkgrid.Key) {
	req, ok := s.loading[k]
	if !ok {
		return
	}
	req.cancel()
	delete(s.loading, k)
	s.stats.recordAborted()
	s.metrics.ObserveAborted()
}

func (s *Streamer) issue(ctx context.Context, k chunkgrid.Key, meta worldindex.ChunkMeta, cfg snapshot, priority contracts.Priority) {
	s.nextToken++
	token := s.nextToken

	cancel := s.pipeline.Issue(ctx, k, meta, s.index.ChunksDir, token, priority, fetchpipeline.Options{
		PreferBinary:       cfg.preferBinary,
		GatingEnabled:      cfg.enableTimeWeatherGating,
		UsePersistentCache: cfg.usePersistentCacheForChunks,
	})
	s.loading[k] = &inflightRequest{token: token, cancel: cancel}
	s.stats.recordStarted()
	s.metrics.ObserveStarted()
}

func (s *Streamer) loadingKeySet() map[chunkgrid.Key]struct{} {
	out := make(map[chunkgrid.Key]struct{}, len(s.loading))
	for k := range s.loading {
		out[k] = struct{}{}
	}
	return out
}

func indexOf(keys []chunkgrid.Key, target chunkgrid.Key) int {
	for i, k := range keys {
		if k == target {
			return i
		}
	}
	return -1
}
