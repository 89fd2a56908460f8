package audio

import (
	"bytes"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrMalformed means the payload is not a well formed WAV container.
	ErrMalformed = errors.New("malformed audio payload")
	// ErrUnsupported means the container is valid but its encoding is not
	// handled.
	ErrUnsupported = errors.New("unsupported audio encoding")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Decoder turns a raw audio container into mono PCM samples in [-1, 1].
type Decoder interface {
	Decode(data []byte) (samples []float32, sampleRate int, err error)
}

// WAVDecoder decodes integer PCM WAV files of any bit depth and channel
// count. Multi-channel audio is downmixed by averaging.
type WAVDecoder struct{}

// NewWAVDecoder returns a WAVDecoder.
func NewWAVDecoder() *WAVDecoder {
	return &WAVDecoder{}
}

// Decode implements Decoder.
func (WAVDecoder) Decode(data []byte) ([]float32, int, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil, 0, fmt.Errorf("%w: not a WAV file", ErrMalformed)
	}

	if d.WavAudioFormat != formatPCM && d.WavAudioFormat != formatExtensible {
		return nil, 0, fmt.Errorf("%w: wav format %d", ErrUnsupported, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("%w: no samples", ErrMalformed)
	}

	bytesPerSample := int(d.BitDepth) / 8
	if bytesPerSample > 0 && d.PCMSize > 0 && len(buf.Data) < d.PCMSize/bytesPerSample {
		return nil, 0, fmt.Errorf("%w: truncated data chunk (%d of %d samples)",
			ErrMalformed, len(buf.Data), d.PCMSize/bytesPerSample)
	}

	samples := toMonoFloat(buf)
	return samples, buf.Format.SampleRate, nil
}

func toMonoFloat(buf *goaudio.IntBuffer) []float32 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	// 8-bit WAV is unsigned, everything wider is two's complement.
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]-offset) / scale
		}
		out[i] = sum / float32(channels)
	}
	return out
}
