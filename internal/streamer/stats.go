package streamer

import "sync"

// Stats is a point-in-time snapshot of the streamer's fetch counters. It is
// read far more often than written (typically once per Update versus
// whenever a debug overlay polls it), so it gets its own small mutex rather
// than folding into Config's.
type Stats struct {
	Started   uint64
	Loaded    uint64
	Aborted   uint64
	Failed    uint64
	LastError string
}

type statsBox struct {
	mu sync.Mutex
	s  Stats
}

func (b *statsBox) snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s
}

func (b *statsBox) recordStarted() {
	b.mu.Lock()
	b.s.Started++
	b.mu.Unlock()
}

func (b *statsBox) recordLoaded() {
	b.mu.Lock()
	b.s.Loaded++
	b.mu.Unlock()
}

func (b *statsBox) recordAborted() {
	b.mu.Lock()
	b.s.Aborted++
	b.mu.Unlock()
}

func (b *statsBox) recordFailed(err error) {
	b.mu.Lock()
	b.s.Failed++
	if err != nil {
		b.s.LastError = err.Error()
	}
	b.mu.Unlock()
}
