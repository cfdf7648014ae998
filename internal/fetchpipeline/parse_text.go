package fetchpipeline

import (
	"context"
	"math"
	"path"

	jsoniter "github.com/json-iterator/go"

	"github.com/peytontolbert/chunkstreamer/internal/contracts"
	"github.com/peytontolbert/chunkstreamer/internal/worldindex"
)

var ndjsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ndjsonObject mirrors one line of chunk NDJSON. The gate key is stored
// under several historical aliases across world exports; all are accepted
// and the first non-nil one wins.
type ndjsonObject struct {
	Position      []float64 `json:"position"`
	ArchetypeHash *float64  `json:"archetype_hash"`
	YmapHash      *float64  `json:"ymap_hash"`
	YmapHashCamel *float64  `json:"ymapHash"`
	YmapHash32    *float64  `json:"ymap_hash32"`
}

func (o ndjsonObject) archetypeHash() uint32 {
	for _, v := range []*float64{o.ArchetypeHash, o.YmapHash, o.YmapHashCamel, o.YmapHash32} {
		if v != nil {
			return uint32(*v)
		}
	}
	return 0
}

// parseTextual streams the chunk's NDJSON payload, dropping malformed lines
// and gate-unavailable entities, and flattens admitted entity positions into
// the payload the way the binary fast path would have.
func (p *Pipeline) parseTextual(ctx context.Context, meta worldindex.ChunkMeta, chunksDir string, fetchOpts contracts.FetchOptions, gatingEnabled bool) ([]float32, error) {
	var payload []float32

	fetchPath := path.Join(chunksDir, meta.File)
	err := p.fetcher.FetchTextNDJSON(ctx, fetchPath, fetchOpts, func(line []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var obj ndjsonObject
		if err := ndjsonAPI.Unmarshal(line, &obj); err != nil {
			return nil // malformed object dropped silently
		}
		if len(obj.Position) < 3 {
			return nil
		}
		x, y, z := obj.Position[0], obj.Position[1], obj.Position[2]
		if !finite(x) || !finite(y) || !finite(z) {
			return nil
		}

		if gatingEnabled && p.gateEval != nil {
			if !p.gateEval.IsAvailable(obj.archetypeHash()) {
				return nil
			}
		}

		payload = append(payload, float32(x), float32(y), float32(z))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
