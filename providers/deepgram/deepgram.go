package deepgram

import (
	"bytes"
	"context"
	"fmt"
	"io"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/providers"
)

const (
	engineName   = "deepgram"
	defaultModel = "nova-2"
)

// prerecordedClient is a local interface that wraps the methods we need
// from the Deepgram REST client to enable easier testing
type prerecordedClient interface {
	FromStream(ctx context.Context, src io.Reader, options *interfaces.PreRecordedTranscriptionOptions) (*msginterfaces.PreRecordedResponse, error)
}

// Engine implements providers.Engine using Deepgram's pre-recorded
// transcription API. Every call is an independent HTTP request.
type Engine struct {
	client prerecordedClient
	model  string
}

// NewEngine creates a new Deepgram engine with the given API key.
func NewEngine(apiKey, model string) *Engine {
	client.InitWithDefault()

	if model == "" {
		model = defaultModel
	}
	c := client.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Engine{
		client: api.New(c),
		model:  model,
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return engineName
}

// Transcribe uploads the samples as a WAV file. Deepgram returns the whole
// transcript for the first channel as a single segment.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int, opts providers.Options) ([]providers.Segment, error) {
	wavData, err := audio.EncodeFloatWAV(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("deepgram: encode: %w", err)
	}

	tOptions := &interfaces.PreRecordedTranscriptionOptions{
		Model:       e.model,
		Language:    opts.Language,
		Punctuate:   true,
		SmartFormat: true,
	}

	resp, err := e.client.FromStream(ctx, bytes.NewReader(wavData), tOptions)
	if err != nil {
		return nil, fmt.Errorf("deepgram: transcribe: %w", err)
	}

	return toSegments(resp), nil
}

// Close is a no-op; the REST client holds no persistent connection.
func (e *Engine) Close() error {
	return nil
}

func toSegments(resp *msginterfaces.PreRecordedResponse) []providers.Segment {
	if resp == nil || resp.Results == nil || len(resp.Results.Channels) == 0 {
		return nil
	}
	alternatives := resp.Results.Channels[0].Alternatives
	if len(alternatives) == 0 || alternatives[0].Transcript == "" {
		return nil
	}

	var duration float64
	if resp.Metadata != nil {
		duration = resp.Metadata.Duration
	}
	return []providers.Segment{{
		Text: alternatives[0].Transcript,
		End:  duration,
	}}
}
