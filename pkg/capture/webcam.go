package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Webcam captures frames from a local camera via OpenCV.
type Webcam struct {
	quality int

	mu     sync.Mutex
	cam    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenWebcam opens the configured capture device.
func OpenWebcam(cfg Config) (*Webcam, error) {
	cam, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, cfg.Device, err)
	}

	if cfg.Width > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	return &Webcam{
		quality: cfg.Quality,
		cam:     cam,
		mat:     gocv.NewMat(),
	}, nil
}

// Frame grabs one frame and encodes it as JPEG at the fixed quality.
func (w *Webcam) Frame() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if !w.cam.Read(&w.mat) {
		return nil, ErrDeviceUnavailable
	}
	if w.mat.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.mat,
		[]int{gocv.IMWriteJpegQuality, w.quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the camera.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.mat.Close()
	return w.cam.Close()
}
