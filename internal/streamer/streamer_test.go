package streamer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/peytontolbert/chunkstreamer/internal/camera"
	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
	"github.com/peytontolbert/chunkstreamer/internal/contracts"
)

// fakeFetcher serves NDJSON text straight from an in-memory map, keyed by
// the exact path the streamer requests.
type fakeFetcher struct {
	text map[string]string
}

func (f *fakeFetcher) FetchBytes(ctx context.Context, path string, opts contracts.FetchOptions) ([]byte, error) {
	return nil, contracts.ErrNotFound
}

func (f *fakeFetcher) FetchTextNDJSON(ctx context.Context, path string, opts contracts.FetchOptions, onObject func([]byte) error) error {
	text, ok := f.text[path]
	if !ok {
		return contracts.ErrNotFound
	}
	for _, line := range splitLines(text) {
		if len(line) == 0 {
			continue
		}
		if err := onObject([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// fakeSink records Admit/Drop calls for assertions.
type fakeSink struct {
	admitted map[chunkgrid.Key][]float32
	dropped  map[chunkgrid.Key]int
}

func newFakeSink() *fakeSink {
	return &fakeSink{admitted: map[chunkgrid.Key][]float32{}, dropped: map[chunkgrid.Key]int{}}
}

func (s *fakeSink) Admit(key chunkgrid.Key, payload []float32) { s.admitted[key] = payload }
func (s *fakeSink) Drop(key chunkgrid.Key)                     { s.dropped[key]++ }

func writeIndexFixture(t *testing.T, radius int) string {
	t.Helper()
	dir := t.TempDir()

	chunks := ""
	for dx := -radius - 1; dx <= radius+1; dx++ {
		for dy := -radius - 1; dy <= radius+1; dy++ {
			if chunks != "" {
				chunks += ","
			}
			k := chunkgrid.Key{SX: int32(dx), SY: int32(dy)}
			chunks += `"` + k.String() + `":{"file":"` + k.String() + `.ndjson"}`
		}
	}

	indexPath := filepath.Join(dir, "index.json")
	content := `{"chunk_size":512,"bounds":{"min_z":-100,"max_z":100},"chunks_dir":"chunks","chunks":{` + chunks + `}}`
	if err := os.WriteFile(indexPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing index fixture: %v", err)
	}
	return indexPath
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func identityModel() camera.ModelTransform {
	return camera.ModelTransform{DataToView: mgl32.Ident4(), ViewToData: mgl32.Ident4()}
}

func TestStreamerLoadsWantedChunks(t *testing.T) {
	indexPath := writeIndexFixture(t, 0)
	fetcher := &fakeFetcher{text: map[string]string{
		"chunks/0_0.ndjson": `{"position":[1,2,3]}` + "\n",
	}}

	cfg := NewConfig()
	cfg.SetRadiusChunks(1)
	cfg.SetEnableFrustumCulling(false)
	cfg.SetEnableTimeWeatherGating(false)

	st := New(fetcher, cfg, nil, nil)
	if err := st.Init(indexPath, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sink := newFakeSink()
	pose := camera.Pose{Position: mgl32.Vec3{256, 256, 0}, Forward: mgl32.Vec3{0, 1, 0}}

	st.Update(context.Background(), pose, identityModel(), sink)
	waitUntil(t, func() bool {
		st.Update(context.Background(), pose, identityModel(), sink)
		_, ok := sink.admitted[chunkgrid.Key{SX: 0, SY: 0}]
		return ok
	})

	if payload := sink.admitted[chunkgrid.Key{SX: 0, SY: 0}]; len(payload) != 3 {
		t.Fatalf("expected chunk (0,0) admitted with 3 floats, got %v", payload)
	}
}

func TestStreamerEvictsWhenOutOfRange(t *testing.T) {
	indexPath := writeIndexFixture(t, 2)
	fetcher := &fakeFetcher{text: map[string]string{}}
	for dx := -3; dx <= 3; dx++ {
		for dy := -3; dy <= 3; dy++ {
			k := chunkgrid.Key{SX: int32(dx), SY: int32(dy)}
			fetcher.text["chunks/"+k.String()+".ndjson"] = `{"position":[1,2,3]}` + "\n"
		}
	}

	cfg := NewConfig()
	cfg.SetRadiusChunks(1)
	cfg.SetEnableFrustumCulling(false)
	cfg.SetEnableTimeWeatherGating(false)
	cfg.SetMaxNewLoadsPerUpdate(50)

	st := New(fetcher, cfg, nil, nil)
	if err := st.Init(indexPath, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sink := newFakeSink()
	near := camera.Pose{Position: mgl32.Vec3{256, 256, 0}, Forward: mgl32.Vec3{0, 1, 0}}

	for i := 0; i < 5; i++ {
		st.Update(context.Background(), near, identityModel(), sink)
		time.Sleep(10 * time.Millisecond)
	}
	if len(sink.admitted) == 0 {
		t.Fatalf("expected at least one chunk admitted near the origin")
	}

	far := camera.Pose{Position: mgl32.Vec3{256 + 20*512, 256, 0}, Forward: mgl32.Vec3{0, 1, 0}}
	for i := 0; i < 3; i++ {
		st.Update(context.Background(), far, identityModel(), sink)
		time.Sleep(10 * time.Millisecond)
	}

	if len(sink.dropped) == 0 {
		t.Fatalf("expected previously-admitted chunks to be dropped once out of range")
	}
}

func TestInitWithGateTableLocksPreferBinaryOff(t *testing.T) {
	indexPath := writeIndexFixture(t, 0)
	dir := filepath.Dir(indexPath)
	gatePath := filepath.Join(dir, "gates.json")
	if err := os.WriteFile(gatePath, []byte(`{"byYmapHash":{"42":{"hoursOnOff":1}}}`), 0o644); err != nil {
		t.Fatalf("writing gate fixture: %v", err)
	}

	cfg := NewConfig()
	cfg.SetPreferBinary(true)

	st := New(&fakeFetcher{}, cfg, nil, nil)
	if err := st.Init(indexPath, gatePath); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if cfg.PreferBinary() {
		t.Fatalf("expected prefer_binary forced off once a non-empty gate table is loaded")
	}
	cfg.SetPreferBinary(true)
	if cfg.PreferBinary() {
		t.Fatalf("expected prefer_binary to stay locked off after Init, even on a later Set call")
	}
}

func TestStreamerSetTimeWeatherBeforeInitIsNoop(t *testing.T) {
	st := New(&fakeFetcher{}, nil, nil, nil)
	hour := 5
	if changed := st.SetTimeWeather(&hour, nil); changed {
		t.Fatalf("expected no-op before Init (no gate evaluator yet)")
	}
}

func TestStreamerGetWantedKeysBeforeInitIsEmpty(t *testing.T) {
	st := New(&fakeFetcher{}, nil, nil, nil)
	pose := camera.Pose{Position: mgl32.Vec3{0, 0, 0}, Forward: mgl32.Vec3{0, 1, 0}}
	if keys := st.GetWantedKeys(pose, identityModel()); keys != nil {
		t.Fatalf("expected nil want-set before Init, got %v", keys)
	}
}
