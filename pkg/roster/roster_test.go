package roster

import (
	"testing"
	"time"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

func TestApplyUpdateUpsert(t *testing.T) {
	r := New()
	r.ApplyUpdate(&protocol.StudentUpdate{
		StudentID:   "s1",
		StudentName: "Amara",
		Emotion:     "happy",
		Engagement:  protocol.EngagementActive,
		FocusLevel:  90,
	})
	r.ApplyUpdate(&protocol.StudentUpdate{
		StudentID:  "s1",
		Emotion:    "neutral",
		Engagement: protocol.EngagementPassive,
		FocusLevel: 60,
	})

	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	s := r.Students()[0]
	if s.Name != "Amara" {
		t.Errorf("name dropped on update without name: got %q", s.Name)
	}
	if s.Emotion != "neutral" || s.FocusLevel != 60 {
		t.Errorf("update not applied: %+v", s)
	}
}

func TestApplyUpdateIgnoresEmptyID(t *testing.T) {
	r := New()
	r.ApplyUpdate(&protocol.StudentUpdate{Emotion: "happy"})
	if r.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", r.Count())
	}
}

func TestStudentsSorted(t *testing.T) {
	r := New()
	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s2", StudentName: "Zoe"})
	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s3", StudentName: "Ben"})
	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s1", StudentName: "Ben"})

	got := r.Students()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "s1" || got[1].ID != "s3" || got[2].ID != "s2" {
		t.Errorf("order = %s, %s, %s; want s1, s3, s2", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestRemoveAndClear(t *testing.T) {
	r := New()
	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s1"})
	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s2"})

	r.Remove("s1")
	if r.Count() != 1 {
		t.Fatalf("after Remove: Count() = %d, want 1", r.Count())
	}
	r.Remove("s1") // already gone
	if r.Count() != 1 {
		t.Fatalf("repeat Remove changed count: %d", r.Count())
	}

	r.Clear()
	if r.Count() != 0 {
		t.Fatalf("after Clear: Count() = %d, want 0", r.Count())
	}
}

func TestLastSeenAdvances(t *testing.T) {
	r := New()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s1"})
	current = base.Add(5 * time.Second)
	r.ApplyUpdate(&protocol.StudentUpdate{StudentID: "s1"})

	if got := r.Students()[0].LastSeen; !got.Equal(current) {
		t.Errorf("LastSeen = %v, want %v", got, current)
	}
}
