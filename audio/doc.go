// Package audio decodes inbound WAV payloads into PCM samples and encodes
// PCM back into WAV for engines and clients that want a container.
package audio
