package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists sessions and conversation messages.
type Store interface {
	// PutSession writes a complete session, replacing any previous version.
	PutSession(ctx context.Context, s *Session) error

	// GetSession returns the session or nil, nil when it does not exist.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// UpdateStatus sets status and updatedAt, and currentSegment when non-nil.
	// It returns ErrNotFound when the session does not exist.
	UpdateStatus(ctx context.Context, sessionID string, status Status, currentSegment *int, updatedAt string) error

	// FindActive returns the most recently created active session for the
	// student and lesson, or nil, nil when there is none.
	FindActive(ctx context.Context, studentID, lessonID string) (*Session, error)

	// PutMessage appends a message to its session's conversation.
	PutMessage(ctx context.Context, m *Message) error

	// ListMessages returns a session's messages in ascending timestamp order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// ContentStore persists narrated lesson content.
type ContentStore interface {
	// FindContent returns the most recently created processed content for
	// the lesson, topic and level, or nil, nil when there is none.
	FindContent(ctx context.Context, lessonID, topic, level string) (*Content, error)

	// PutContent writes content that has not been narrated yet.
	PutContent(ctx context.Context, c *Content) error

	// CompleteContent stores the narrated segments and marks the content
	// processed.
	CompleteContent(ctx context.Context, lessonID, contentID string, segments []AudioSegment, updatedAt string) error
}

// MemoryStore is a Store and ContentStore backed by process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	messages map[string][]Message
	contents map[string][]*Content
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		messages: make(map[string][]Message),
		contents: make(map[string][]*Content),
	}
}

func (m *MemoryStore) PutSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s.clone()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, sessionID string, status Status, currentSegment *int, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = updatedAt
	if currentSegment != nil {
		s.CurrentSegment = *currentSegment
	}
	return nil
}

func (m *MemoryStore) FindActive(_ context.Context, studentID, lessonID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *Session
	for _, s := range m.sessions {
		if s.StudentID != studentID || s.LessonID != lessonID || s.Status != StatusActive {
			continue
		}
		if latest == nil || s.CreatedAt > latest.CreatedAt {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.clone(), nil
}

func (m *MemoryStore) PutMessage(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], *msg)
	return nil
}

func (m *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Message{}, m.messages[sessionID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *MemoryStore) FindContent(_ context.Context, lessonID, topic, level string) (*Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *Content
	for _, c := range m.contents[lessonID] {
		if c.Topic != topic || c.Level != level || !c.IsProcessed {
			continue
		}
		if latest == nil || c.CreatedAt > latest.CreatedAt {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.clone(), nil
}

func (m *MemoryStore) PutContent(_ context.Context, c *Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents[c.LessonID] = append(m.contents[c.LessonID], c.clone())
	return nil
}

func (m *MemoryStore) CompleteContent(_ context.Context, lessonID, contentID string, segments []AudioSegment, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contents[lessonID] {
		if c.ContentID == contentID {
			c.Segments = append([]AudioSegment{}, segments...)
			c.UpdatedAt = updatedAt
			c.IsProcessed = true
			return nil
		}
	}
	return fmt.Errorf("voice content %s/%s: %w", lessonID, contentID, ErrNotFound)
}
