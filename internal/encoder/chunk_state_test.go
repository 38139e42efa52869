package encoder

import "testing"

func TestChunkMachineTransitions(t *testing.T) {
	m := newChunkMachine()
	if m.state != chunkOpening {
		t.Fatalf("initial state = %v, want opening", m.state)
	}

	if err := m.submitFrame(); err != nil {
		t.Fatalf("first submitFrame error: %v", err)
	}
	if m.state != chunkRunning {
		t.Fatalf("state after first frame = %v, want running", m.state)
	}

	if err := m.submitFrame(); err != nil {
		t.Fatalf("second submitFrame error: %v", err)
	}

	m.beginFlush()
	if m.state != chunkFlushing {
		t.Fatalf("state after beginFlush = %v, want flushing", m.state)
	}
	if err := m.submitFrame(); err == nil {
		t.Fatal("want error submitting a frame while flushing")
	}

	m.finish()
	if m.state != chunkClosed {
		t.Fatalf("state after finish = %v, want closed", m.state)
	}
	if err := m.submitFrame(); err == nil {
		t.Fatal("want error submitting a frame to a closed chunk")
	}
}

func TestChunkMachineFailedIsPermanent(t *testing.T) {
	m := newChunkMachine()
	if err := m.submitFrame(); err != nil {
		t.Fatalf("first submitFrame error: %v", err)
	}

	m.markFailed()
	if m.state != chunkFailed {
		t.Fatalf("state after markFailed = %v, want failed", m.state)
	}

	for i := 0; i < 3; i++ {
		if err := m.submitFrame(); err == nil {
			t.Fatal("want error submitting a frame after markFailed")
		}
		if m.state != chunkFailed {
			t.Fatalf("state should stay failed, got %v", m.state)
		}
	}
}
