package providers

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Serialized wraps an Engine so that at most n calls to Transcribe run at
// the same time. Callers over the limit wait for a permit in FIFO order or
// until their context is done.
type Serialized struct {
	engine Engine
	sem    *semaphore.Weighted

	// observeWait, when set, receives the time each call spent waiting for
	// a permit.
	observeWait func(time.Duration)
}

// Serialize returns engine behind a gate of n permits. n < 1 is treated as 1.
func Serialize(engine Engine, n int) *Serialized {
	if n < 1 {
		n = 1
	}
	return &Serialized{
		engine: engine,
		sem:    semaphore.NewWeighted(int64(n)),
	}
}

// OnWait registers a callback receiving the permit wait time of every call.
func (s *Serialized) OnWait(fn func(time.Duration)) *Serialized {
	s.observeWait = fn
	return s
}

// Name implements Engine.
func (s *Serialized) Name() string {
	return s.engine.Name()
}

// Transcribe implements Engine.
func (s *Serialized) Transcribe(ctx context.Context, samples []float32, sampleRate int, opts Options) ([]Segment, error) {
	start := time.Now()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	if s.observeWait != nil {
		s.observeWait(time.Since(start))
	}
	return s.engine.Transcribe(ctx, samples, sampleRate, opts)
}

// Close implements Engine.
func (s *Serialized) Close() error {
	return s.engine.Close()
}
