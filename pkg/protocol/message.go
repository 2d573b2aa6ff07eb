// Package protocol defines the WebSocket envelope and message types for
// classroom session communication. This package is shared by the student
// client, the teacher monitor, and the dev classroom server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket envelope
type MessageType string

const (
	// Client → Server messages
	TypeVideoFrame       MessageType = "video_frame"       // JPEG frame for classification
	TypeEngagementUpdate MessageType = "engagement_update" // Derived engagement report

	// Server → Client messages
	TypeConnected     MessageType = "connected"      // Session greeting
	TypeError         MessageType = "error"          // Server-side error
	TypeEmotionResult MessageType = "emotion_result" // Per-frame classification
	TypeStudentUpdate MessageType = "student_update" // Student engagement broadcast
	TypeStudentLeave  MessageType = "student_leave"  // Student left the session
	TypeSessionEnded  MessageType = "session_ended"  // Session closed by teacher

	// Bidirectional
	TypePing MessageType = "ping" // Liveness probe
	TypePong MessageType = "pong" // Liveness response

	// TypeWildcard subscribes a handler to every envelope.
	TypeWildcard MessageType = "*"
)

// Envelope is the base wrapper for all WebSocket messages
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"` // ISO-8601 UTC
}

// NewEnvelope creates an envelope with the current timestamp
func NewEnvelope(msgType MessageType, data interface{}) (*Envelope, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal envelope data: %w", err)
		}
	}

	return &Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the envelope data into the provided struct
func (e *Envelope) ParseData(v interface{}) error {
	if e.Data == nil {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Bytes returns the JSON-encoded envelope
func (e *Envelope) Bytes() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope parses a JSON envelope from bytes
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope missing type")
	}
	return &env, nil
}

// Engagement is the category derived per classification result
type Engagement string

const (
	EngagementActive     Engagement = "active"
	EngagementPassive    Engagement = "passive"
	EngagementDistracted Engagement = "distracted"
)

// =============================================================================
// Client → Server payloads
// =============================================================================

// VideoFrameData carries one encoded webcam frame
type VideoFrameData struct {
	Frame     string `json:"frame"`     // base64 JPEG data URI
	Timestamp string `json:"timestamp"` // capture time, ISO-8601
}

// EngagementUpdate reports the client's derived engagement upstream
type EngagementUpdate struct {
	Emotion    string     `json:"emotion,omitempty"`
	Engagement Engagement `json:"engagement"`
	FocusLevel int        `json:"focus_level"`
}

// =============================================================================
// Server → Client payloads
// =============================================================================

// SessionInfo accompanies the connected greeting
type SessionInfo struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Subject string `json:"subject,omitempty"`
	Teacher string `json:"teacher,omitempty"`
}

// HeadPose contains the estimated head orientation in degrees
type HeadPose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// ClassificationResult is the remote classifier's verdict for one frame.
// Consumed read-only: the client aggregates but never reclassifies.
type ClassificationResult struct {
	Emotion       string     `json:"emotion,omitempty"`
	Confidence    float64    `json:"confidence"`  // 0.0 to 1.0
	Engagement    Engagement `json:"engagement"`  // active/passive/distracted
	FocusLevel    int        `json:"focus_level"` // 0-100
	FaceDetected  bool       `json:"face_detected"`
	IsFocusedGaze *bool      `json:"is_focused_gaze,omitempty"`
	GazeDirection string     `json:"gaze_direction,omitempty"` // "CENTER", "LEFT", ...
	Pose          *HeadPose  `json:"pose,omitempty"`
}

// StudentUpdate broadcasts one student's engagement to the teacher
type StudentUpdate struct {
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	Emotion     string     `json:"emotion,omitempty"`
	Engagement  Engagement `json:"engagement"`
	FocusLevel  int        `json:"focus_level"`
}

// StudentLeave announces a student leaving the session
type StudentLeave struct {
	StudentID string `json:"student_id"`
}

// =============================================================================
// Bidirectional payloads
// =============================================================================

// PingData contains ping correlation info
type PingData struct {
	ID string `json:"id,omitempty"`
}
