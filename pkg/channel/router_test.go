package channel

import (
	"testing"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

func TestRouterDispatchExactThenWildcard(t *testing.T) {
	r := NewRouter()

	var order []string
	r.Subscribe(protocol.TypeEmotionResult, func(env *protocol.Envelope) {
		order = append(order, "exact-1")
	})
	r.Subscribe(protocol.TypeEmotionResult, func(env *protocol.Envelope) {
		order = append(order, "exact-2")
	})
	r.Subscribe(protocol.TypeWildcard, func(env *protocol.Envelope) {
		order = append(order, "wildcard")
	})
	r.Subscribe(protocol.TypeSessionEnded, func(env *protocol.Envelope) {
		order = append(order, "other-type")
	})

	r.Dispatch(&protocol.Envelope{Type: protocol.TypeEmotionResult})

	want := []string{"exact-1", "exact-2", "wildcard"}
	if len(order) != len(want) {
		t.Fatalf("dispatched to %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRouterUnsubscribe(t *testing.T) {
	r := NewRouter()

	calls := 0
	unsub := r.Subscribe(protocol.TypeStudentUpdate, func(env *protocol.Envelope) {
		calls++
	})

	r.Dispatch(&protocol.Envelope{Type: protocol.TypeStudentUpdate})
	unsub()
	r.Dispatch(&protocol.Envelope{Type: protocol.TypeStudentUpdate})
	unsub() // second call is a no-op

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestRouterPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	r := NewRouter()

	delivered := false
	r.Subscribe(protocol.TypeEmotionResult, func(env *protocol.Envelope) {
		panic("handler bug")
	})
	r.Subscribe(protocol.TypeEmotionResult, func(env *protocol.Envelope) {
		delivered = true
	})

	r.Dispatch(&protocol.Envelope{Type: protocol.TypeEmotionResult})

	if !delivered {
		t.Error("second handler should still receive the envelope")
	}
}

func TestRouterClear(t *testing.T) {
	r := NewRouter()

	calls := 0
	r.Subscribe(protocol.TypeWildcard, func(env *protocol.Envelope) { calls++ })
	r.Clear()
	r.Dispatch(&protocol.Envelope{Type: protocol.TypeEmotionResult})

	if calls != 0 {
		t.Errorf("cleared handler called %d times, want 0", calls)
	}
}
