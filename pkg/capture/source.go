// Package capture provides on-demand webcam frame capture with JPEG
// encoding, plus a mock source for tests.
package capture

import "errors"

// Sentinel errors for the capture package.
var (
	// ErrNoFrame indicates the device has no frame buffered yet; the
	// caller should simply skip this tick.
	ErrNoFrame = errors.New("capture: no frame available")

	// ErrClosed indicates the source was closed.
	ErrClosed = errors.New("capture: source closed")

	// ErrDeviceUnavailable indicates the camera could not be opened or
	// stopped delivering frames (unplugged, permission revoked).
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
)

// Source yields encoded frames on demand. Implementations are pull-based:
// the frame pump decides when to sample, the source never queues.
type Source interface {
	// Frame captures and returns the next frame as JPEG bytes.
	// Returns ErrNoFrame when nothing is buffered yet and
	// ErrDeviceUnavailable when the device is gone.
	Frame() ([]byte, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Config holds capture settings.
type Config struct {
	Device  int // capture device index
	Width   int
	Height  int
	Quality int // JPEG quality 1-100
}

// DefaultConfig returns settings suitable for classification input:
// modest resolution, lossy encoding at fixed quality.
func DefaultConfig() Config {
	return Config{
		Device:  0,
		Width:   640,
		Height:  480,
		Quality: 70,
	}
}
