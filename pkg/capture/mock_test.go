package capture

import (
	"errors"
	"testing"
)

func TestMockSourceServesPayload(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	m := NewMockSource(WithPayload(payload))

	jpeg, err := m.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if len(jpeg) != len(payload) {
		t.Fatalf("got %d bytes, want %d", len(jpeg), len(payload))
	}
	// The returned slice is a copy; mutating it must not affect later frames.
	jpeg[0] = 99
	again, _ := m.Frame()
	if again[0] != 1 {
		t.Error("Frame() should return an independent copy")
	}
	if m.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", m.Frames())
	}
}

func TestMockSourceErrorMode(t *testing.T) {
	m := NewMockSource(WithError(ErrNoFrame))

	if _, err := m.Frame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Frame() error = %v, want ErrNoFrame", err)
	}
	if m.Frames() != 0 {
		t.Error("failed captures must not count as frames")
	}

	m.SetError(nil)
	if _, err := m.Frame(); err != nil {
		t.Errorf("Frame() after clearing error = %v", err)
	}
}

func TestMockSourceClosed(t *testing.T) {
	m := NewMockSource()
	m.Close()
	m.Close() // idempotent

	if _, err := m.Frame(); !errors.Is(err, ErrClosed) {
		t.Errorf("Frame() on closed source = %v, want ErrClosed", err)
	}
}
