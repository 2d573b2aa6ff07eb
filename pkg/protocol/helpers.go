package protocol

import (
	"encoding/base64"
	"strings"
)

// jpegDataURIPrefix is the data URI header the classifier expects
const jpegDataURIPrefix = "data:image/jpeg;base64,"

// =============================================================================
// Helper functions for creating envelopes
// =============================================================================

// NewVideoFrameEnvelope creates a video_frame envelope from raw JPEG bytes
func NewVideoFrameEnvelope(jpeg []byte, capturedAt string) (*Envelope, error) {
	return NewEnvelope(TypeVideoFrame, VideoFrameData{
		Frame:     jpegDataURIPrefix + base64.StdEncoding.EncodeToString(jpeg),
		Timestamp: capturedAt,
	})
}

// NewEngagementUpdateEnvelope creates an engagement_update envelope
func NewEngagementUpdateEnvelope(emotion string, engagement Engagement, focusLevel int) (*Envelope, error) {
	return NewEnvelope(TypeEngagementUpdate, EngagementUpdate{
		Emotion:    emotion,
		Engagement: engagement,
		FocusLevel: focusLevel,
	})
}

// NewPingEnvelope creates a ping envelope
func NewPingEnvelope(id string) (*Envelope, error) {
	return NewEnvelope(TypePing, PingData{ID: id})
}

// NewPongEnvelope creates a pong response envelope
func NewPongEnvelope(id string) (*Envelope, error) {
	return NewEnvelope(TypePong, PingData{ID: id})
}

// =============================================================================
// Helper functions for parsing envelopes
// =============================================================================

// GetVideoFrameData extracts video frame data from an envelope
func (e *Envelope) GetVideoFrameData() (*VideoFrameData, error) {
	var data VideoFrameData
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrame decodes the base64 JPEG payload, stripping the data URI header
func (v *VideoFrameData) DecodeFrame() ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(v.Frame, jpegDataURIPrefix))
}

// GetClassificationResult extracts a classification result from an envelope
func (e *Envelope) GetClassificationResult() (*ClassificationResult, error) {
	var data ClassificationResult
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEngagementUpdate extracts an engagement update from an envelope
func (e *Envelope) GetEngagementUpdate() (*EngagementUpdate, error) {
	var data EngagementUpdate
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStudentUpdate extracts a student update from an envelope
func (e *Envelope) GetStudentUpdate() (*StudentUpdate, error) {
	var data StudentUpdate
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStudentLeave extracts a student leave notice from an envelope
func (e *Envelope) GetStudentLeave() (*StudentLeave, error) {
	var data StudentLeave
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionInfo extracts session info from a connected greeting
func (e *Envelope) GetSessionInfo() (*SessionInfo, error) {
	var data SessionInfo
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping correlation data from an envelope
func (e *Envelope) GetPingData() (*PingData, error) {
	var data PingData
	if err := e.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Unfocused reports whether this result indicates the student is not
// paying attention: distracted category, focus below the midline, or
// gaze explicitly off-screen.
func (r *ClassificationResult) Unfocused() bool {
	if r.Engagement == EngagementDistracted {
		return true
	}
	if r.FocusLevel < 50 {
		return true
	}
	if r.IsFocusedGaze != nil && !*r.IsFocusedGaze {
		return true
	}
	return false
}
