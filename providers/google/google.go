package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/providers"
)

const engineName = "google"

// recognizeClient is a local interface that wraps the methods we need
// from speech.Client to enable easier testing
type recognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// regions maps bare language tags to the region Google expects.
var regions = map[string]string{
	"ru": "ru-RU",
	"en": "en-US",
	"uk": "uk-UA",
	"de": "de-DE",
}

// Engine implements providers.Engine on top of Google Speech-to-Text
// synchronous recognition. The gRPC client is safe for concurrent use.
type Engine struct {
	client recognizeClient
	model  string
}

// NewEngine creates a new Google Speech engine with the given client.
// model may be empty to let the API pick its default.
func NewEngine(client *speech.Client, model string) *Engine {
	return &Engine{
		client: client,
		model:  model,
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return engineName
}

// Transcribe sends the audio as LINEAR16 and returns one segment per
// recognition result.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int, opts providers.Options) ([]providers.Segment, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    languageCode(opts.Language),
			Model:           e.model,
			MaxAlternatives: 1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audio.Int16ToBytes(audio.FloatToPCM16(samples)),
			},
		},
	}

	resp, err := e.client.Recognize(ctx, req)
	if status.Code(err) == codes.Canceled {
		return nil, context.Canceled
	}
	if status.Code(err) == codes.DeadlineExceeded {
		return nil, context.DeadlineExceeded
	}
	if err != nil {
		return nil, fmt.Errorf("google: recognize: %w", err)
	}

	var (
		segments []providers.Segment
		prevEnd  float64
	)
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		end := prevEnd
		if d := result.GetResultEndTime(); d != nil {
			end = d.AsDuration().Seconds()
		}
		segments = append(segments, providers.Segment{
			Text:  result.GetAlternatives()[0].GetTranscript(),
			Start: prevEnd,
			End:   end,
		})
		prevEnd = end
	}
	return segments, nil
}

// Close closes the underlying gRPC client.
func (e *Engine) Close() error {
	if e.client == nil {
		return errors.New("google: engine not initialised")
	}
	return e.client.Close()
}

func languageCode(lang string) string {
	if strings.Contains(lang, "-") {
		return lang
	}
	if code, ok := regions[strings.ToLower(lang)]; ok {
		return code
	}
	return lang
}
