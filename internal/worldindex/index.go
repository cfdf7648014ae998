// Package worldindex loads the immutable world index and optional gate
// table that describe where each chunk's payload lives. The loading idiom
// (read the whole file, json.Unmarshal into a wire struct, wrap errors with
// fmt.Errorf's %w) is adapted directly from pkg/blockmodel/loader.go, which
// loads block/item model JSON the same way. Unlike the hot-path NDJSON
// parser in fetchpipeline, this is a one-time cold load at Init, so it keeps
// plain encoding/json rather than the faster json-iterator used on the
// per-chunk hot path.
package worldindex

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
	"github.com/peytontolbert/chunkstreamer/internal/gate"
)

// ChunkMeta describes one chunk's on-disk payload files.
type ChunkMeta struct {
	// File is the NDJSON textual payload, relative to ChunksDir.
	File string
	// BinaryFile is the optional binary companion payload, relative to
	// ChunksDir. Empty means no binary fast path is available for this
	// chunk.
	BinaryFile string
}

// Index is the immutable world index loaded once at Init.
type Index struct {
	ChunkSize float32
	MinZ      float32
	MaxZ      float32
	ChunksDir string
	Chunks    map[chunkgrid.Key]ChunkMeta
}

// Grid returns the chunkgrid.Grid this index implies.
func (idx *Index) Grid() chunkgrid.Grid {
	return chunkgrid.New(idx.ChunkSize, idx.MinZ, idx.MaxZ)
}

type wireChunkMeta struct {
	File       string `json:"file"`
	BinaryFile string `json:"binaryFile"`
}

type wireIndex struct {
	ChunkSize float32 `json:"chunk_size"`
	Bounds    struct {
		MinZ float32 `json:"min_z"`
		MaxZ float32 `json:"max_z"`
	} `json:"bounds"`
	ChunksDir string                   `json:"chunks_dir"`
	Chunks    map[string]wireChunkMeta `json:"chunks"`
}

// Load reads and parses the world index file at path. Malformed or missing
// index files are reported as an error; the caller is expected to leave the
// streamer disabled rather than retry.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("worldindex: could not read index file: %w", err)
	}

	var wire wireIndex
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("worldindex: could not unmarshal index json: %w", err)
	}

	idx := &Index{
		ChunkSize: wire.ChunkSize,
		MinZ:      wire.Bounds.MinZ,
		MaxZ:      wire.Bounds.MaxZ,
		ChunksDir: wire.ChunksDir,
		Chunks:    make(map[chunkgrid.Key]ChunkMeta, len(wire.Chunks)),
	}
	for keyStr, meta := range wire.Chunks {
		key, err := chunkgrid.ParseKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("worldindex: chunk entry %q: %w", keyStr, err)
		}
		idx.Chunks[key] = ChunkMeta{File: meta.File, BinaryFile: meta.BinaryFile}
	}
	return idx, nil
}

type wireGateRecord struct {
	HoursOnOff   *uint32       `json:"hoursOnOff"`
	WeatherTypes []interface{} `json:"weatherTypes"`
}

type wireGateTable struct {
	ByYmapHash map[string]wireGateRecord `json:"byYmapHash"`
}

// LoadGateTable reads and parses the optional gate table file at path.
// String weather entries are hashed with gate.JenkinsHash on their
// lowercased form; numeric entries are taken as already-hashed u32 values.
func LoadGateTable(path string) (gate.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("worldindex: could not read gate table: %w", err)
	}

	var wire wireGateTable
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("worldindex: could not unmarshal gate table json: %w", err)
	}

	table := make(gate.Table, len(wire.ByYmapHash))
	for hashStr, rec := range wire.ByYmapHash {
		hash, err := strconv.ParseUint(hashStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("worldindex: gate table key %q: %w", hashStr, err)
		}

		var hoursMask uint32
		if rec.HoursOnOff != nil {
			hoursMask = *rec.HoursOnOff
		}

		weathers := make(map[uint32]struct{}, len(rec.WeatherTypes))
		for _, raw := range rec.WeatherTypes {
			switch v := raw.(type) {
			case string:
				weathers[gate.JenkinsHash(strings.ToLower(v))] = struct{}{}
			case float64:
				weathers[uint32(v)] = struct{}{}
			}
		}

		table[uint32(hash)] = gate.Record{HoursMask: hoursMask, Weathers: weathers}
	}
	return table, nil
}
