package worldindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadIndex(t *testing.T) {
	path := writeTemp(t, "index.json", `{
		"chunk_size": 512,
		"bounds": {"min_z": -100, "max_z": 100},
		"chunks_dir": "chunks",
		"chunks": {
			"0_0": {"file": "0_0.ndjson"},
			"-1_2": {"file": "-1_2.ndjson", "binaryFile": "-1_2.bin"}
		}
	}`)

	idx, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if idx.ChunkSize != 512 || idx.MinZ != -100 || idx.MaxZ != 100 {
		t.Fatalf("unexpected scalar fields: %+v", idx)
	}
	meta, ok := idx.Chunks[chunkgrid.Key{SX: 0, SY: 0}]
	if !ok || meta.File != "0_0.ndjson" {
		t.Fatalf("missing or wrong meta for 0_0: %+v", meta)
	}
	meta, ok = idx.Chunks[chunkgrid.Key{SX: -1, SY: 2}]
	if !ok || meta.BinaryFile != "-1_2.bin" {
		t.Fatalf("missing or wrong meta for -1_2: %+v", meta)
	}
}

func TestLoadIndexMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing index file")
	}
}

func TestLoadGateTable(t *testing.T) {
	path := writeTemp(t, "gates.json", `{
		"byYmapHash": {
			"42": {"hoursOnOff": 8192},
			"7": {"weatherTypes": ["Rain", 12345]}
		}
	}`)

	table, err := LoadGateTable(path)
	if err != nil {
		t.Fatalf("LoadGateTable returned error: %v", err)
	}
	rec, ok := table[42]
	if !ok || rec.HoursMask != 8192 {
		t.Fatalf("expected hoursMask 8192 for archetype 42, got %+v", rec)
	}
	rec, ok = table[7]
	if !ok {
		t.Fatalf("expected record for archetype 7")
	}
	if _, ok := rec.Weathers[12345]; !ok {
		t.Fatalf("expected numeric weather 12345 to be present")
	}
	if len(rec.Weathers) != 2 {
		t.Fatalf("expected 2 weather entries, got %d", len(rec.Weathers))
	}
}
