// Package classroom provides a development WebSocket hub for classroom
// sessions: students stream frames and receive classifications, teachers
// receive live engagement relays.
package classroom

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// Participant roles on the session socket.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// conn is the subset of *websocket.Conn the hub writes through.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Participant is one connected session member.
type Participant struct {
	ID        string
	Role      string
	Conn      conn
	Connected time.Time
	LastSeen  time.Time

	classifier *classifier

	mu sync.Mutex
}

// Send marshals and writes an envelope to the participant.
func (p *Participant) Send(env *protocol.Envelope) error {
	data, err := env.Bytes()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

type session struct {
	id           string
	participants map[string]*Participant
}

// Hub manages classroom session WebSocket connections.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
}

// NewHub creates an empty classroom hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
	}
}

// RegisterRoutes registers the session WebSocket route on a Fiber app.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/session/:id/:role/:pid", websocket.New(h.handleSession))
}

// handleSession handles one participant WebSocket connection.
func (h *Hub) handleSession(c *websocket.Conn) {
	sessionID := c.Params("id")
	role := c.Params("role")
	participantID := c.Params("pid")

	if role != RoleStudent && role != RoleTeacher {
		log.Warn("classroom: rejecting unknown role", "role", role, "participant", participantID)
		c.Close()
		return
	}

	p := h.join(sessionID, role, participantID, c)
	defer h.leave(sessionID, p)

	if err := h.greet(sessionID, p); err != nil {
		log.Warn("classroom: greeting failed", "participant", participantID, "error", err)
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		p.mu.Lock()
		p.LastSeen = time.Now()
		p.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(sessionID, p, data)
	}
}

// join registers a participant, creating the session on first join.
func (h *Hub) join(sessionID, role, participantID string, c conn) *Participant {
	p := &Participant{
		ID:        participantID,
		Role:      role,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}
	if role == RoleStudent {
		p.classifier = newClassifier()
	}

	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if !ok {
		s = &session{id: sessionID, participants: make(map[string]*Participant)}
		h.sessions[sessionID] = s
	}
	s.participants[participantID] = p
	count := len(s.participants)
	h.mu.Unlock()

	log.Info("classroom: participant joined",
		"session", sessionID, "role", role, "participant", participantID, "count", count)
	return p
}

// leave unregisters a participant and tells teachers when a student drops.
func (h *Hub) leave(sessionID string, p *Participant) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(s.participants, p.ID)
		if len(s.participants) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.mu.Unlock()

	log.Info("classroom: participant left",
		"session", sessionID, "role", p.Role, "participant", p.ID)

	if p.Role == RoleStudent {
		env, err := protocol.NewEnvelope(protocol.TypeStudentLeave, protocol.StudentLeave{StudentID: p.ID})
		if err != nil {
			return
		}
		h.broadcastToTeachers(sessionID, env)
	}
}

// greet sends the connected handshake message.
func (h *Hub) greet(sessionID string, p *Participant) error {
	env, err := protocol.NewEnvelope(protocol.TypeConnected, protocol.SessionInfo{ID: sessionID})
	if err != nil {
		return err
	}
	env.Message = fmt.Sprintf("Connected as %s", p.Role)
	h.messagesSent.Add(1)
	return p.Send(env)
}

// handleMessage processes one inbound envelope from a participant.
func (h *Hub) handleMessage(sessionID string, p *Participant, data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Warn("classroom: parse error", "participant", p.ID, "error", err)
		return
	}

	switch env.Type {
	case protocol.TypePing:
		ping, err := env.GetPingData()
		id := ""
		if err == nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongEnvelope(id)
		if err != nil {
			return
		}
		h.messagesSent.Add(1)
		if err := p.Send(pong); err != nil {
			log.Warn("classroom: pong failed", "participant", p.ID, "error", err)
		}

	case protocol.TypeVideoFrame:
		if p.Role != RoleStudent {
			return
		}
		h.framesReceived.Add(1)
		result := p.classifier.classify()
		reply, err := protocol.NewEnvelope(protocol.TypeEmotionResult, result)
		if err != nil {
			return
		}
		h.messagesSent.Add(1)
		if err := p.Send(reply); err != nil {
			log.Warn("classroom: result send failed", "participant", p.ID, "error", err)
		}

	case protocol.TypeEngagementUpdate:
		if p.Role != RoleStudent {
			return
		}
		update, err := env.GetEngagementUpdate()
		if err != nil {
			return
		}
		relay, err := protocol.NewEnvelope(protocol.TypeStudentUpdate, protocol.StudentUpdate{
			StudentID:  p.ID,
			Emotion:    update.Emotion,
			Engagement: update.Engagement,
			FocusLevel: update.FocusLevel,
		})
		if err != nil {
			return
		}
		h.broadcastToTeachers(sessionID, relay)
	}
}

// EndSession notifies every participant and closes their connections.
func (h *Hub) EndSession(sessionID string) error {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	env, err := protocol.NewEnvelope(protocol.TypeSessionEnded, nil)
	if err != nil {
		return err
	}
	env.Message = "Session ended"

	for _, p := range participants {
		h.messagesSent.Add(1)
		if err := p.Send(env); err != nil {
			log.Warn("classroom: session end notify failed", "participant", p.ID, "error", err)
		}
		p.Conn.Close()
	}
	return nil
}

// broadcastToTeachers sends an envelope to every teacher in the session.
func (h *Hub) broadcastToTeachers(sessionID string, env *protocol.Envelope) {
	h.mu.RLock()
	var teachers []*Participant
	if s, ok := h.sessions[sessionID]; ok {
		for _, p := range s.participants {
			if p.Role == RoleTeacher {
				teachers = append(teachers, p)
			}
		}
	}
	h.mu.RUnlock()

	for _, t := range teachers {
		h.messagesSent.Add(1)
		if err := t.Send(env); err != nil {
			log.Warn("classroom: teacher relay failed", "participant", t.ID, "error", err)
		}
	}
}

// ParticipantCount returns the number of participants in a session.
func (h *Hub) ParticipantCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[sessionID]; ok {
		return len(s.participants)
	}
	return 0
}

// Stats contains hub statistics.
type Stats struct {
	SessionCount     int    `json:"session_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	sessions := len(h.sessions)
	h.mu.RUnlock()

	return Stats{
		SessionCount:     sessions,
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
	}
}

// SessionInfo describes one live session.
type SessionInfo struct {
	ID           string `json:"id"`
	StudentCount int    `json:"student_count"`
	TeacherCount int    `json:"teacher_count"`
}

// GetSessionInfos returns info about all live sessions.
func (h *Hub) GetSessionInfos() []SessionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		info := SessionInfo{ID: s.id}
		for _, p := range s.participants {
			if p.Role == RoleTeacher {
				info.TeacherCount++
			} else {
				info.StudentCount++
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// RegisterAPIRoutes registers session management API routes.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	sessions := api.Group("/sessions")

	sessions.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": h.GetSessionInfos(),
		})
	})

	sessions.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	sessions.Post("/:id/end", func(c *fiber.Ctx) error {
		if err := h.EndSession(c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "ended"})
	})
}
