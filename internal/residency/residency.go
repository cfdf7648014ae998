// Package residency holds the pure decision functions that shape the set of
// chunks kept resident: what to evict, what in-flight fetch to cancel, what
// to trim once a hard cap is exceeded, and what new loads to issue this
// tick. Each function takes the caller's bookkeeping as plain maps/slices
// and returns a plan; it owns no state of its own. This mirrors the
// ChunkStore helpers (internal/world/chunk_store.go), which expose small
// pure methods like radius/eviction checks that World composes rather than
// folding the logic into one monolithic update loop.
package residency

import (
	"sort"

	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
)

// Unwanted returns the subset of loaded that is no longer present in wanted.
// Order is unspecified; callers that need determinism should sort the
// result themselves.
func Unwanted(loaded map[chunkgrid.Key]struct{}, wanted map[chunkgrid.Key]struct{}) []chunkgrid.Key {
	out := make([]chunkgrid.Key, 0)
	for k := range loaded {
		if _, ok := wanted[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// CancelableInflight returns the subset of in-flight keys that have fallen
// out of the wanted set and should have their fetch cancelled.
func CancelableInflight(inflight map[chunkgrid.Key]struct{}, wanted map[chunkgrid.Key]struct{}) []chunkgrid.Key {
	out := make([]chunkgrid.Key, 0)
	for k := range inflight {
		if _, ok := wanted[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// TrimExcess returns the loaded keys to evict, beyond maxLoaded, choosing
// the farthest-from-wanted-head keys first. wantedOrder is the current
// want-set in priority order (nearest/most-wanted first); its head is used
// as the distance origin. Ties break on the lexicographically greatest
// key string, for determinism across runs.
func TrimExcess(loaded map[chunkgrid.Key]struct{}, wantedOrder []chunkgrid.Key, maxLoaded int) []chunkgrid.Key {
	overflow := len(loaded) - maxLoaded
	if overflow <= 0 {
		return nil
	}

	var origin chunkgrid.Key
	if len(wantedOrder) > 0 {
		origin = wantedOrder[0]
	}

	type candidate struct {
		key     chunkgrid.Key
		distSq  int64
		keyText string
	}
	candidates := make([]candidate, 0, len(loaded))
	for k := range loaded {
		dx := int64(k.SX - origin.SX)
		dy := int64(k.SY - origin.SY)
		candidates = append(candidates, candidate{key: k, distSq: dx*dx + dy*dy, keyText: k.String()})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distSq != candidates[j].distSq {
			return candidates[i].distSq > candidates[j].distSq // farthest first
		}
		return candidates[i].keyText > candidates[j].keyText // lexicographically greatest first
	})

	if overflow > len(candidates) {
		overflow = len(candidates)
	}
	out := make([]chunkgrid.Key, overflow)
	for i := 0; i < overflow; i++ {
		out[i] = candidates[i].key
	}
	return out
}

// Issuable walks wantedOrder (nearest/most-wanted first) and returns up to
// budget keys that are neither already loaded nor already in flight, in
// want-set order, so the caller issues fetches for the highest-priority
// missing chunks first.
func Issuable(wantedOrder []chunkgrid.Key, loaded map[chunkgrid.Key]struct{}, inflight map[chunkgrid.Key]struct{}, budget int) []chunkgrid.Key {
	if budget <= 0 {
		return nil
	}
	out := make([]chunkgrid.Key, 0, budget)
	for _, k := range wantedOrder {
		if len(out) >= budget {
			break
		}
		if _, ok := loaded[k]; ok {
			continue
		}
		if _, ok := inflight[k]; ok {
			continue
		}
		out = append(out, k)
	}
	return out
}
