package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/providers"
)

const engineName = "whisper"

// transcriptionResponse is the JSON body returned by whisper-asr-webservice
// with output=json.
type transcriptionResponse struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language"`
	Segments []transcriptionSegment `json:"segments"`
}

type transcriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Engine talks to a self hosted whisper-asr-webservice
// (https://github.com/ahmetoner/whisper-asr-webservice), typically running
// the faster_whisper backend on a GPU. The service processes one request at
// a time per model, so callers should still gate it with
// providers.Serialize.
type Engine struct {
	baseURL    string
	httpClient *http.Client
}

// NewEngine creates a new engine for the service at baseURL. A zero timeout
// means requests are only bounded by the caller's context.
func NewEngine(baseURL string, timeout time.Duration) *Engine {
	return &Engine{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return engineName
}

// Transcribe uploads the samples as a 16-bit WAV and returns the segments
// reported by the service. Beam width is configured on the service side.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int, opts providers.Options) ([]providers.Segment, error) {
	wavData, err := audio.EncodeFloatWAV(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("whisper: failed to encode audio: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("whisper: failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("whisper: failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("whisper: failed to close multipart writer: %w", err)
	}

	query := url.Values{}
	query.Set("task", "transcribe")
	query.Set("output", "json")
	query.Set("encode", "true")
	if opts.Language != "" {
		query.Set("language", opts.Language)
	}
	requestURL := e.baseURL + "/asr?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var transcription transcriptionResponse
	if err := json.Unmarshal(responseBody, &transcription); err != nil {
		return nil, fmt.Errorf("whisper: failed to decode response: %w", err)
	}

	if len(transcription.Segments) == 0 {
		if transcription.Text == "" {
			return nil, nil
		}
		return []providers.Segment{{Text: transcription.Text}}, nil
	}

	segments := make([]providers.Segment, 0, len(transcription.Segments))
	for _, s := range transcription.Segments {
		segments = append(segments, providers.Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}
	return segments, nil
}

// Ping checks that the service is reachable and not failing.
func (e *Engine) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("whisper: failed to create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: service unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("whisper: service returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle HTTP connections.
func (e *Engine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
