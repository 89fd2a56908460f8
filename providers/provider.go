package providers

import (
	"context"
	"strings"
)

// Engine converts decoded audio into text. Different engines can implement
// this interface to support various speech services like a self hosted
// Whisper, Google Speech, Deepgram, etc.
//
// Implementations are loaded once at startup and shared by every worker.
// Unless documented otherwise an Engine must be assumed unsafe for
// concurrent use; wrap it with Serialize before handing it to workers.
type Engine interface {
	// Name returns a short identifier used in logs and metrics.
	Name() string

	// Transcribe runs inference over mono samples in [-1, 1] captured at
	// sampleRate Hz. Segments are returned in the order the engine produced
	// them, each covering a successive time window of the same audio.
	Transcribe(ctx context.Context, samples []float32, sampleRate int, opts Options) ([]Segment, error)

	// Close releases the model or client held by the engine.
	Close() error
}

// Pinger is implemented by engines whose backend can be checked for
// readiness before sessions are accepted.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds per-deployment decoding parameters.
type Options struct {
	// Language is the spoken language, e.g. "ru". It is fixed per
	// deployment, not negotiated per request.
	Language string

	// BeamSize is the beam search width. Engines that do not expose beam
	// search ignore it.
	BeamSize int
}

// Segment is one time bounded piece of a transcript.
type Segment struct {
	// Text is the transcribed text exactly as emitted by the engine,
	// including any leading or trailing spacing.
	Text string

	// Start and End are offsets from the beginning of the audio in seconds,
	// when the engine reports them.
	Start float64
	End   float64
}

// Join concatenates segment texts in order without inserting separators.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
