package main

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate      = 16000
	framesPerBuffer = 1024
)

// frameSource is the part of *portaudio.Stream the recorder uses. Each Read
// fills the buffer the stream was opened with.
type frameSource interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// MicrophoneRecorder captures 16-bit mono PCM at 16kHz from the default input
// device between Start and Stop.
type MicrophoneRecorder struct {
	stream    frameSource
	buffer    []int16
	terminate func() error

	mu      sync.Mutex
	samples []int16
	err     error
	stop    chan struct{}
	done    chan struct{}
}

// NewMicrophoneRecorder initializes PortAudio and opens the default input
// stream. The caller must call Close to release it.
func NewMicrophoneRecorder() (*MicrophoneRecorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buffer), buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	rec := newRecorder(stream, buffer)
	rec.terminate = portaudio.Terminate
	return rec, nil
}

func newRecorder(stream frameSource, buffer []int16) *MicrophoneRecorder {
	return &MicrophoneRecorder{
		stream: stream,
		buffer: buffer,
	}
}

// Start begins capturing into a fresh clip.
func (m *MicrophoneRecorder) Start() error {
	if err := m.stream.Start(); err != nil {
		return err
	}

	m.mu.Lock()
	m.samples = nil
	m.err = nil
	m.mu.Unlock()

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.capture(m.stop, m.done)
	return nil
}

func (m *MicrophoneRecorder) capture(stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := m.stream.Read(); err != nil {
			// A dropped frame is not worth losing the clip over.
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		m.samples = append(m.samples, m.buffer...)
		m.mu.Unlock()
	}
}

// Stop ends the capture and returns the recorded clip.
func (m *MicrophoneRecorder) Stop() ([]int16, error) {
	if m.stop == nil {
		return nil, errors.New("recorder not started")
	}
	close(m.stop)
	<-m.done
	m.stop = nil

	stopErr := m.stream.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.samples, m.err
	}
	return m.samples, stopErr
}

// Close closes the stream and terminates PortAudio.
func (m *MicrophoneRecorder) Close() error {
	err := m.stream.Close()
	if m.terminate != nil {
		if termErr := m.terminate(); termErr != nil && err == nil {
			err = termErr
		}
	}
	return err
}
