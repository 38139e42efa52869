package encoder

import "fmt"

// chunkState is the per-chunk lifecycle. Rollover and shutdown move a chunk
// out of Running into Flushing, and a terminal backend failure moves it to
// Failed; frame submission is rejected in every state but Running.
type chunkState int

const (
	chunkOpening chunkState = iota
	chunkRunning
	chunkFlushing
	chunkClosed
	chunkFailed
)

func (s chunkState) String() string {
	switch s {
	case chunkOpening:
		return "opening"
	case chunkRunning:
		return "running"
	case chunkFlushing:
		return "flushing"
	case chunkClosed:
		return "closed"
	case chunkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var errChunkNotRunning = fmt.Errorf("chunk not accepting frames")
var errChunkFailed = fmt.Errorf("chunk writer: backend failed terminally, no longer accepting frames")

// chunkMachine tracks the state for the chunk currently being written.
type chunkMachine struct {
	state chunkState
}

func newChunkMachine() *chunkMachine {
	return &chunkMachine{state: chunkOpening}
}

// submitFrame transitions Opening -> Running on the first call and rejects
// the frame unless the chunk is Running. Once Failed, every subsequent call
// is rejected too: there is no transition back out of Failed.
func (m *chunkMachine) submitFrame() error {
	if m.state == chunkFailed {
		return errChunkFailed
	}
	if m.state == chunkOpening {
		m.state = chunkRunning
	}
	if m.state != chunkRunning {
		return errChunkNotRunning
	}
	return nil
}

// markFailed transitions to Failed from any state, permanently rejecting
// further frames. Triggered when the backend fails terminally and every
// lower-priority fallback has also been exhausted.
func (m *chunkMachine) markFailed() {
	m.state = chunkFailed
}

// beginFlush transitions Running -> Flushing, triggered by rollover or
// shutdown. A Failed chunk stays Failed.
func (m *chunkMachine) beginFlush() {
	if m.state == chunkFailed {
		return
	}
	m.state = chunkFlushing
}

// finish transitions Flushing -> Closed once the trailer is written. A
// Failed chunk stays Failed.
func (m *chunkMachine) finish() {
	if m.state == chunkFailed {
		return
	}
	m.state = chunkClosed
}
