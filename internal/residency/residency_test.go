package residency

import (
	"testing"

	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
)

func key(sx, sy int32) chunkgrid.Key { return chunkgrid.Key{SX: sx, SY: sy} }

func set(keys ...chunkgrid.Key) map[chunkgrid.Key]struct{} {
	m := make(map[chunkgrid.Key]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func TestUnwantedDropsKeysNotInWanted(t *testing.T) {
	loaded := set(key(0, 0), key(1, 0), key(2, 0))
	wanted := set(key(0, 0), key(2, 0))

	got := Unwanted(loaded, wanted)
	if len(got) != 1 || got[0] != key(1, 0) {
		t.Fatalf("expected only (1,0) unwanted, got %v", got)
	}
}

func TestCancelableInflightMirrorsUnwanted(t *testing.T) {
	inflight := set(key(5, 5), key(6, 6))
	wanted := set(key(5, 5))

	got := CancelableInflight(inflight, wanted)
	if len(got) != 1 || got[0] != key(6, 6) {
		t.Fatalf("expected only (6,6) cancelable, got %v", got)
	}
}

func TestTrimExcessNoOverflowReturnsNil(t *testing.T) {
	loaded := set(key(0, 0), key(1, 0))
	if got := TrimExcess(loaded, []chunkgrid.Key{key(0, 0)}, 5); got != nil {
		t.Fatalf("expected nil when under cap, got %v", got)
	}
}

func TestTrimExcessPrefersFarthestFirst(t *testing.T) {
	loaded := set(key(0, 0), key(1, 0), key(10, 0))
	wantedOrder := []chunkgrid.Key{key(0, 0)}

	got := TrimExcess(loaded, wantedOrder, 2)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 key trimmed, got %v", got)
	}
	if got[0] != key(10, 0) {
		t.Fatalf("expected the farthest key (10,0) trimmed first, got %v", got[0])
	}
}

func TestTrimExcessTieBreaksLexicographically(t *testing.T) {
	// (1,0) and (-1,0) are equidistant from origin (0,0); "1_0" > "-1_0"
	// lexicographically, so it is the one trimmed.
	loaded := set(key(0, 0), key(1, 0), key(-1, 0))
	wantedOrder := []chunkgrid.Key{key(0, 0)}

	got := TrimExcess(loaded, wantedOrder, 2)
	if len(got) != 1 || got[0] != key(1, 0) {
		t.Fatalf("expected (1,0) trimmed by lexicographic tie-break, got %v", got)
	}
}

func TestIssuableSkipsLoadedAndInflight(t *testing.T) {
	wantedOrder := []chunkgrid.Key{key(0, 0), key(1, 0), key(2, 0), key(3, 0)}
	loaded := set(key(0, 0))
	inflight := set(key(1, 0))

	got := Issuable(wantedOrder, loaded, inflight, 10)
	if len(got) != 2 || got[0] != key(2, 0) || got[1] != key(3, 0) {
		t.Fatalf("expected (2,0),(3,0), got %v", got)
	}
}

func TestIssuableRespectsBudget(t *testing.T) {
	wantedOrder := []chunkgrid.Key{key(0, 0), key(1, 0), key(2, 0)}
	got := Issuable(wantedOrder, nil, nil, 2)
	if len(got) != 2 {
		t.Fatalf("expected budget to cap issuable count to 2, got %d", len(got))
	}
}

func TestIssuableZeroBudgetYieldsNone(t *testing.T) {
	wantedOrder := []chunkgrid.Key{key(0, 0)}
	if got := Issuable(wantedOrder, nil, nil, 0); len(got) != 0 {
		t.Fatalf("expected no issuable keys at zero budget, got %v", got)
	}
}
