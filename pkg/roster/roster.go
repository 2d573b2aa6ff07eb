// Package roster maintains the teacher-side view of live students,
// fed by student_update and student_leave broadcasts.
package roster

import (
	"sort"
	"sync"
	"time"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/channel"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// Student is one live roster entry.
type Student struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	Emotion    string              `json:"emotion,omitempty"`
	Engagement protocol.Engagement `json:"engagement,omitempty"`
	FocusLevel int                 `json:"focus_level"`
	LastSeen   time.Time           `json:"last_seen"`
}

// Roster tracks students for one session. Safe for concurrent use.
type Roster struct {
	mu       sync.RWMutex
	students map[string]*Student
	now      func() time.Time
}

// New creates an empty roster.
func New() *Roster {
	return &Roster{
		students: make(map[string]*Student),
		now:      time.Now,
	}
}

// ApplyUpdate upserts a student's engagement entry.
func (r *Roster) ApplyUpdate(u *protocol.StudentUpdate) {
	if u.StudentID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[u.StudentID]
	if !ok {
		s = &Student{ID: u.StudentID}
		r.students[u.StudentID] = s
	}
	if u.StudentName != "" {
		s.Name = u.StudentName
	}
	s.Emotion = u.Emotion
	s.Engagement = u.Engagement
	s.FocusLevel = u.FocusLevel
	s.LastSeen = r.now()
}

// Remove drops a student from the roster.
func (r *Roster) Remove(studentID string) {
	r.mu.Lock()
	delete(r.students, studentID)
	r.mu.Unlock()
}

// Clear empties the roster (session ended).
func (r *Roster) Clear() {
	r.mu.Lock()
	r.students = make(map[string]*Student)
	r.mu.Unlock()
}

// Students returns the entries sorted by name, then ID.
func (r *Roster) Students() []Student {
	r.mu.RLock()
	out := make([]Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of live students.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students)
}

// Attach subscribes the roster to a session channel. The returned
// detach handle removes all three subscriptions.
func (r *Roster) Attach(m *channel.Manager) func() {
	unsubs := []channel.Unsubscribe{
		m.On(protocol.TypeStudentUpdate, func(env *protocol.Envelope) {
			if u, err := env.GetStudentUpdate(); err == nil {
				r.ApplyUpdate(u)
			}
		}),
		m.On(protocol.TypeStudentLeave, func(env *protocol.Envelope) {
			if l, err := env.GetStudentLeave(); err == nil {
				r.Remove(l.StudentID)
			}
		}),
		m.On(protocol.TypeSessionEnded, func(_ *protocol.Envelope) {
			r.Clear()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
