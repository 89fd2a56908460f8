package stt_gateway

import "errors"

// Error kinds. Each is contained by the component that detects it: a
// session loop or a worker. Nothing is retried.
var (
	// ErrConnection is a session read or write failure. It ends that
	// session only.
	ErrConnection = errors.New("connection error")
	// ErrDecode means a payload was not a usable audio container. The job
	// is dropped.
	ErrDecode = errors.New("decode error")
	// ErrEngine is an inference failure. The job is dropped.
	ErrEngine = errors.New("engine error")
	// ErrDelivery means the transcript could not be sent because the
	// session is gone. It is expected and dropped silently.
	ErrDelivery = errors.New("delivery error")
)
