// Package audio is a side channel of the recording session: audio/video
// muxing is out of scope, so this package only counts and logs captured
// sample batches, giving a session's log evidence audio capture was
// attempted without ever encoding or writing audio into the output file.
package audio

import "errors"

// ErrNotSupported is returned by platform stubs with no audio backend.
var ErrNotSupported = errors.New("audio capture not supported on this platform/build")

// Capturer captures system audio for the duration of a recording session.
// Implementations deliver raw sample batches to a callback; the caller
// decides what to do with them (currently: count and log, see
// internal/lifecycle).
type Capturer interface {
	// Start begins capturing audio, invoking callback with each batch of
	// interleaved PCM samples as they arrive.
	Start(callback func(samples []byte)) error
	// Stop releases the capture backend.
	Stop()
}
