package encoder

import (
	"errors"
	"testing"
)

type fakeBackend struct {
	name     string
	initErr  error
	initCall int
}

func (f *fakeBackend) Name() string                               { return f.name }
func (f *fakeBackend) IsHardware() bool                           { return false }
func (f *fakeBackend) Init(cfg Config) error                      { f.initCall++; return f.initErr }
func (f *fakeBackend) CodecParameters() CodecParams                { return CodecParams{} }
func (f *fakeBackend) SendFrame(y, u, v []byte, pts int64) ([]Packet, error) { return nil, nil }
func (f *fakeBackend) ForceKeyframe() error                        { return nil }
func (f *fakeBackend) Flush() ([]Packet, error)                    { return nil, nil }
func (f *fakeBackend) Close() error                                { return nil }

func TestQualityToCRF(t *testing.T) {
	cases := []struct{ quality, want int }{
		{1, 35}, // 42-3=39, clamp to 35
		{10, 12},
		{5, 27},
	}
	for _, c := range cases {
		if got := qualityToCRF(c.quality); got != c.want {
			t.Errorf("qualityToCRF(%d) = %d, want %d", c.quality, got, c.want)
		}
	}
}

func TestQualityToCRFSteep(t *testing.T) {
	if got := qualityToCRFSteep(10); got != 8 {
		t.Errorf("qualityToCRFSteep(10) = %d, want 8", got)
	}
	if got := qualityToCRFSteep(1); got != 28 {
		t.Errorf("qualityToCRFSteep(1) = %d, want 28", got)
	}
}

func TestNonRetryableMatchesNotFoundAndNoSuch(t *testing.T) {
	if !nonRetryable(errors.New("encoder not found")) {
		t.Error("want non-retryable for 'not found'")
	}
	if !nonRetryable(errors.New("no such device")) {
		t.Error("want non-retryable for 'no such'")
	}
	if nonRetryable(errors.New("device busy, try again")) {
		t.Error("want retryable for transient error")
	}
}

func TestSelectBackendFallsThroughOnFailure(t *testing.T) {
	good := &fakeBackend{name: "good"}
	list := []backendFactory{
		{name: "bad", newFunc: func() (Backend, error) {
			return &fakeBackend{name: "bad", initErr: errors.New("no such backend")}, nil
		}},
		{name: "good", newFunc: func() (Backend, error) { return good, nil }},
	}

	backend, err := selectBackend(list, Config{Width: 2, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("selectBackend returned error: %v", err)
	}
	if backend.Name() != "good" {
		t.Fatalf("selected %q, want good", backend.Name())
	}
}

func TestSelectBackendFatalWhenAllFail(t *testing.T) {
	list := []backendFactory{
		{name: "a", newFunc: func() (Backend, error) { return nil, errors.New("no such a") }},
		{name: "b", newFunc: func() (Backend, error) { return nil, errors.New("no such b") }},
	}
	_, err := selectBackend(list, Config{Width: 2, Height: 2, FPS: 30})
	if err == nil {
		t.Fatal("want EncodingError when every backend fails")
	}
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("want *EncodingError, got %T", err)
	}
	if len(encErr.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(encErr.Attempts))
	}
}

func TestHotSwapPicksNextLowerPriorityBackend(t *testing.T) {
	list := []backendFactory{
		{name: "top", newFunc: func() (Backend, error) { return &fakeBackend{name: "top"}, nil }},
		{name: "fallback", newFunc: func() (Backend, error) { return &fakeBackend{name: "fallback"}, nil }},
	}
	next, err := hotSwap(list, "top", Config{Width: 2, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("hotSwap returned error: %v", err)
	}
	if next.Name() != "fallback" {
		t.Fatalf("swapped to %q, want fallback", next.Name())
	}
}

func TestHotSwapFailsWhenNoLowerBackend(t *testing.T) {
	list := []backendFactory{
		{name: "only", newFunc: func() (Backend, error) { return &fakeBackend{name: "only"}, nil }},
	}
	if _, err := hotSwap(list, "only", Config{}); err == nil {
		t.Fatal("want error when no lower-priority backend exists")
	}
}
