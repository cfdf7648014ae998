// streamdemo drives a Streamer against a small on-disk world index without
// any graphics stack attached, logging each admit and drop as it happens and
// the fetch counters once per second. It plays the same role cmd/triangle does as a minimal,
// dependency-light harness for exercising one subsystem in isolation, but
// logs through zap instead of fmt.Printf since this binary exists to
// demonstrate the streamer's own ambient logging, not a graphics smoke
// test.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/peytontolbert/chunkstreamer/internal/assetfetch"
	"github.com/peytontolbert/chunkstreamer/internal/camera"
	"github.com/peytontolbert/chunkstreamer/internal/chunkgrid"
	"github.com/peytontolbert/chunkstreamer/internal/streamer"
)

type logSink struct {
	log *zap.Logger
}

func (s logSink) Admit(key chunkgrid.Key, payload []float32) {
	s.log.Info("chunk admitted", zap.String("key", key.String()), zap.Int("entities", len(payload)/3))
}

func (s logSink) Drop(key chunkgrid.Key) {
	s.log.Info("chunk dropped", zap.String("key", key.String()))
}

func main() {
	indexPath := flag.String("index", "", "path to world index json")
	gatePath := flag.String("gates", "", "path to optional gate table json")
	assetsRoot := flag.String("assets", ".", "root directory chunk paths are resolved against")
	radius := flag.Int("radius", 2, "square-neighborhood radius, in chunks")
	ticks := flag.Int("ticks", 0, "stop after this many ticks (0 = run until interrupted)")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *indexPath == "" {
		log.Fatal("missing -index flag")
	}

	cfg := streamer.NewConfig()
	cfg.SetRadiusChunks(*radius)

	fetcher := assetfetch.New(*assetsRoot)
	st := streamer.New(fetcher, cfg, nil, log)
	if err := st.Init(*indexPath, *gatePath); err != nil {
		log.Fatal("streamer init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := logSink{log: log}
	pose := camera.Pose{Position: mgl32.Vec3{0, 0, 0}, Forward: mgl32.Vec3{0, 1, 0}, ViewProj: mgl32.Ident4()}
	model := camera.ModelTransform{DataToView: mgl32.Ident4(), ViewToData: mgl32.Ident4()}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()

	tickCount := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-statsTicker.C:
			s := st.Stats()
			log.Info("stats",
				zap.Uint64("started", s.Started),
				zap.Uint64("loaded", s.Loaded),
				zap.Uint64("aborted", s.Aborted),
				zap.Uint64("failed", s.Failed),
				zap.String("lastError", s.LastError))
		case <-ticker.C:
			st.Update(ctx, pose, model, sink)
			tickCount++
			if *ticks > 0 && tickCount >= *ticks {
				log.Info("reached tick limit, exiting", zap.Int("ticks", tickCount))
				return
			}
		}
	}
}
