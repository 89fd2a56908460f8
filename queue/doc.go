// Package queue provides the dispatch queue that sits between the connection
// gateway and the transcription workers.
package queue
