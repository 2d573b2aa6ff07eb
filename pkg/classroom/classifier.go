package classroom

import (
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// classifier is a deterministic stand-in for the real emotion model.
// It walks a fixed script so clients exercise the full result surface,
// including distraction episodes, without any ML runtime.
type classifier struct {
	step int
}

type scriptEntry struct {
	emotion    string
	confidence float64
	focusLevel int
	gazeOK     bool
	gaze       string
	yaw        float64
}

// One scripted minute at 500ms per frame: long focused stretches with
// a short distraction episode near the end of each cycle.
var script = []scriptEntry{
	{"happy", 0.91, 88, true, "center", 2},
	{"neutral", 0.84, 72, true, "center", -3},
	{"neutral", 0.80, 68, true, "center", 1},
	{"happy", 0.88, 85, true, "center", 4},
	{"surprise", 0.76, 78, true, "center", 0},
	{"neutral", 0.82, 70, true, "center", -2},
	{"sad", 0.71, 38, false, "left", -34},
	{"sad", 0.74, 30, false, "left", -41},
	{"neutral", 0.79, 45, false, "right", 29},
	{"neutral", 0.83, 66, true, "center", 5},
}

func newClassifier() *classifier {
	return &classifier{}
}

// classify produces the result for the next frame in the script.
func (c *classifier) classify() protocol.ClassificationResult {
	e := script[c.step%len(script)]
	c.step++

	gazeOK := e.gazeOK
	return protocol.ClassificationResult{
		Emotion:       e.emotion,
		Confidence:    e.confidence,
		Engagement:    engagementFor(e.emotion, e.focusLevel),
		FocusLevel:    e.focusLevel,
		FaceDetected:  true,
		IsFocusedGaze: &gazeOK,
		GazeDirection: e.gaze,
		Pose:          &protocol.HeadPose{Yaw: e.yaw},
	}
}

// engagementFor maps an emotion label and focus level to an
// engagement category, mirroring the production model's buckets.
func engagementFor(emotion string, focusLevel int) protocol.Engagement {
	if focusLevel < 50 {
		return protocol.EngagementDistracted
	}
	switch emotion {
	case "happy", "surprise":
		return protocol.EngagementActive
	case "sad", "angry", "fear", "disgust":
		return protocol.EngagementDistracted
	default:
		return protocol.EngagementPassive
	}
}
