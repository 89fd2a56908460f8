package stt_gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/filter"
	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/metrics"
	"github.com/agnivade/stt_gateway/providers"
)

// Sender is the reply side of a client session.
type Sender interface {
	Send(text string) error
	String() string
}

// Job is one inbound audio payload waiting to be transcribed. It owns its
// payload; Conn is only used to send the result back.
type Job struct {
	Conn       Sender
	Payload    []byte
	Seq        uint64
	ReceivedAt time.Time
}

// Worker turns one job into one transcript and sends it to the job's
// session. Every failure is contained to the job.
type Worker struct {
	decoder audio.Decoder
	engine  providers.Engine
	filter  *filter.Set
	opts    providers.Options
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewWorker creates a worker. engine is shared by all jobs and should be
// wrapped with providers.Serialize when the backend cannot take concurrent
// calls. A zero timeout leaves jobs unbounded.
func NewWorker(decoder audio.Decoder, engine providers.Engine, set *filter.Set, opts providers.Options, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Worker {
	if set == nil {
		set = filter.Default
	}
	return &Worker{
		decoder: decoder,
		engine:  engine,
		filter:  set,
		opts:    opts,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Process runs decode, transcribe, filter and deliver for job. The returned
// error is for the caller's information only; it has already been logged.
func (w *Worker) Process(ctx context.Context, job Job) (err error) {
	w.metrics.ActiveWorkers.Inc()
	defer w.metrics.ActiveWorkers.Dec()

	defer func() {
		if r := recover(); r != nil {
			w.metrics.JobsFailed.WithLabelValues(metrics.StagePanic).Inc()
			w.log.Errorw("Recovered from panic in worker", "session", job.Conn, "seq", job.Seq, "panic", r)
			err = fmt.Errorf("%w: panic: %v", ErrEngine, r)
		}
	}()

	text, err := w.transcribe(ctx, job)
	if err != nil {
		stage := metrics.StageTranscribe
		if errors.Is(err, ErrDecode) {
			stage = metrics.StageDecode
		}
		w.metrics.JobsFailed.WithLabelValues(stage).Inc()
		w.log.Warnw("Dropping job", "session", job.Conn, "seq", job.Seq, "err", err)
		return err
	}

	if err := job.Conn.Send(text); err != nil {
		// The client went away while we were working.
		w.metrics.JobsFailed.WithLabelValues(metrics.StageDeliver).Inc()
		w.log.Debugw("Transcript not delivered", "session", job.Conn, "seq", job.Seq, "err", err)
		return err
	}

	w.metrics.JobsCompleted.Inc()
	w.metrics.TranscriptLength.Observe(float64(len([]rune(text))))
	if text == "" {
		w.metrics.DeliveredEmpty.Inc()
	}
	w.log.Debugw("Transcript delivered",
		"session", job.Conn,
		"seq", job.Seq,
		"chars", len(text),
		"latency", time.Since(job.ReceivedAt))
	return nil
}

// transcribe returns the filtered transcript of job's payload.
func (w *Worker) transcribe(ctx context.Context, job Job) (string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	samples, rate, err := w.decoder.Decode(job.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEngine, err)
	}

	start := time.Now()
	segments, err := w.engine.Transcribe(ctx, samples, rate, w.opts)
	w.metrics.EngineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrEngine, w.engine.Name(), err)
	}

	raw := providers.Join(segments)
	text := w.filter.Filter(raw)
	if text != raw {
		w.metrics.FillersFiltered.Inc()
		w.log.Debugw("Filtered filler transcript", "session", job.Conn, "seq", job.Seq, "text", raw)
	}
	return text, nil
}
