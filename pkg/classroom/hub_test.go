package classroom

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// fakeConn records writes so tests can inspect what the hub sent.
type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) envelopes(t *testing.T) []*protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*protocol.Envelope, 0, len(f.writes))
	for _, data := range f.writes {
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			t.Fatalf("hub wrote invalid envelope: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func mustBytes(t *testing.T, env *protocol.Envelope, err error) []byte {
	t.Helper()
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	data, err := env.Bytes()
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

func TestGreetingOnJoin(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}

	p := h.join("sess-1", RoleStudent, "stu-1", c)
	if err := h.greet("sess-1", p); err != nil {
		t.Fatalf("greet: %v", err)
	}

	envs := c.envelopes(t)
	if len(envs) != 1 {
		t.Fatalf("got %d messages, want 1", len(envs))
	}
	if envs[0].Type != protocol.TypeConnected {
		t.Errorf("type = %q, want %q", envs[0].Type, protocol.TypeConnected)
	}
	if envs[0].Message != "Connected as student" {
		t.Errorf("message = %q", envs[0].Message)
	}
	info, err := envs[0].GetSessionInfo()
	if err != nil {
		t.Fatalf("session info: %v", err)
	}
	if info.ID != "sess-1" {
		t.Errorf("session id = %q, want sess-1", info.ID)
	}
}

func TestPingAnsweredWithMatchingPong(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	p := h.join("sess-1", RoleStudent, "stu-1", c)

	ping, err := protocol.NewPingEnvelope("ping-42")
	h.handleMessage("sess-1", p, mustBytes(t, ping, err))

	envs := c.envelopes(t)
	if len(envs) != 1 || envs[0].Type != protocol.TypePong {
		t.Fatalf("expected single pong, got %v", envs)
	}
	pd, err := envs[0].GetPingData()
	if err != nil || pd.ID != "ping-42" {
		t.Errorf("pong id = %v (err %v), want ping-42", pd, err)
	}
}

func TestVideoFrameGetsClassification(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	p := h.join("sess-1", RoleStudent, "stu-1", c)

	frame, err := protocol.NewVideoFrameEnvelope([]byte{0xFF, 0xD8, 0xFF}, "2025-03-01T09:00:00Z")
	h.handleMessage("sess-1", p, mustBytes(t, frame, err))

	envs := c.envelopes(t)
	if len(envs) != 1 || envs[0].Type != protocol.TypeEmotionResult {
		t.Fatalf("expected emotion_result, got %v", envs)
	}
	result, err := envs[0].GetClassificationResult()
	if err != nil {
		t.Fatalf("classification result: %v", err)
	}
	if !result.FaceDetected || result.Emotion == "" {
		t.Errorf("empty result: %+v", result)
	}
	if h.GetStats().FramesReceived != 1 {
		t.Errorf("frames received = %d, want 1", h.GetStats().FramesReceived)
	}
}

func TestEngagementRelayedToTeachersOnly(t *testing.T) {
	h := NewHub()
	studentConn := &fakeConn{}
	teacherConn := &fakeConn{}
	otherStudent := &fakeConn{}

	student := h.join("sess-1", RoleStudent, "stu-1", studentConn)
	h.join("sess-1", RoleTeacher, "tea-1", teacherConn)
	h.join("sess-1", RoleStudent, "stu-2", otherStudent)

	update, err := protocol.NewEngagementUpdateEnvelope("happy", protocol.EngagementActive, 85)
	h.handleMessage("sess-1", student, mustBytes(t, update, err))

	envs := teacherConn.envelopes(t)
	if len(envs) != 1 || envs[0].Type != protocol.TypeStudentUpdate {
		t.Fatalf("teacher expected student_update, got %v", envs)
	}
	su, err := envs[0].GetStudentUpdate()
	if err != nil {
		t.Fatalf("student update: %v", err)
	}
	if su.StudentID != "stu-1" || su.FocusLevel != 85 {
		t.Errorf("relay = %+v", su)
	}

	if n := len(otherStudent.envelopes(t)); n != 0 {
		t.Errorf("other student received %d relays, want 0", n)
	}
	if n := len(studentConn.envelopes(t)); n != 0 {
		t.Errorf("sender received %d relays, want 0", n)
	}
}

func TestTeacherFramesIgnored(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	teacher := h.join("sess-1", RoleTeacher, "tea-1", c)

	frame, err := protocol.NewVideoFrameEnvelope([]byte{0x01}, "2025-03-01T09:00:00Z")
	h.handleMessage("sess-1", teacher, mustBytes(t, frame, err))

	if n := len(c.envelopes(t)); n != 0 {
		t.Errorf("teacher got %d replies to a frame, want 0", n)
	}
}

func TestStudentLeaveBroadcast(t *testing.T) {
	h := NewHub()
	teacherConn := &fakeConn{}
	h.join("sess-1", RoleTeacher, "tea-1", teacherConn)
	student := h.join("sess-1", RoleStudent, "stu-1", &fakeConn{})

	h.leave("sess-1", student)

	envs := teacherConn.envelopes(t)
	if len(envs) != 1 || envs[0].Type != protocol.TypeStudentLeave {
		t.Fatalf("expected student_leave, got %v", envs)
	}
	leave, err := envs[0].GetStudentLeave()
	if err != nil || leave.StudentID != "stu-1" {
		t.Errorf("leave = %+v (err %v)", leave, err)
	}
	if h.ParticipantCount("sess-1") != 1 {
		t.Errorf("count = %d, want 1", h.ParticipantCount("sess-1"))
	}
}

func TestEndSession(t *testing.T) {
	h := NewHub()
	studentConn := &fakeConn{}
	teacherConn := &fakeConn{}
	h.join("sess-1", RoleStudent, "stu-1", studentConn)
	h.join("sess-1", RoleTeacher, "tea-1", teacherConn)

	if err := h.EndSession("sess-1"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	for name, c := range map[string]*fakeConn{"student": studentConn, "teacher": teacherConn} {
		envs := c.envelopes(t)
		if len(envs) != 1 || envs[0].Type != protocol.TypeSessionEnded {
			t.Errorf("%s expected session_ended, got %v", name, envs)
		}
		if !c.closed {
			t.Errorf("%s connection not closed", name)
		}
	}

	if h.ParticipantCount("sess-1") != 0 {
		t.Errorf("session still has participants")
	}
	if err := h.EndSession("sess-1"); err == nil {
		t.Errorf("ending a gone session should fail")
	}
}

func TestMalformedMessageIgnored(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	p := h.join("sess-1", RoleStudent, "stu-1", c)

	h.handleMessage("sess-1", p, []byte("{not json"))
	h.handleMessage("sess-1", p, []byte(`{"data":{}}`))

	if n := len(c.envelopes(t)); n != 0 {
		t.Errorf("got %d replies to garbage, want 0", n)
	}
}

func TestClassifierScriptCoversDistraction(t *testing.T) {
	c := newClassifier()

	sawDistracted := false
	sawActive := false
	for i := 0; i < len(script); i++ {
		r := c.classify()
		if r.Engagement == protocol.EngagementDistracted {
			sawDistracted = true
			if r.IsFocusedGaze == nil || *r.IsFocusedGaze {
				t.Errorf("step %d: distracted result reports focused gaze", i)
			}
		}
		if r.Engagement == protocol.EngagementActive {
			sawActive = true
		}
		if data, err := json.Marshal(r); err != nil || len(data) == 0 {
			t.Fatalf("step %d: marshal: %v", i, err)
		}
	}
	if !sawDistracted || !sawActive {
		t.Errorf("script missing variety: distracted=%v active=%v", sawDistracted, sawActive)
	}
}
