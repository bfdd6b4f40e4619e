package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Narrator turns a lesson into narrated audio segments. It returns nil, nil
// when there is nothing to narrate.
type Narrator interface {
	Prepare(ctx context.Context, lessonID string, cfg Config, lessonText string) (*Content, error)
}

// Service implements the voice session operations on top of a Store.
type Service struct {
	store    Store
	narrator Narrator
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNarrator narrates each new session's lesson before the session is
// stored.
func WithNarrator(n Narrator) ServiceOption {
	return func(s *Service) { s.narrator = n }
}

// NewService creates a session service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new active session for a student's lesson. With a
// narrator configured, the session carries the lesson's audio segments;
// lessonText is the material to narrate and may be empty when the narrator
// can produce or reuse it.
func (s *Service) Create(ctx context.Context, studentID, lessonID, courseID string, cfg Config, lessonText string) (*Session, error) {
	for _, err := range []error{
		required("studentId", studentID),
		required("lessonId", lessonID),
		required("courseId", courseID),
	} {
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	sess := &Session{
		SessionID:     NewID("vs", now),
		StudentID:     studentID,
		LessonID:      lessonID,
		CourseID:      courseID,
		Config:        cfg,
		Status:        StatusActive,
		CreatedAt:     FormatTime(now),
		UpdatedAt:     FormatTime(now),
		AudioSegments: []AudioSegment{},
	}

	if s.narrator != nil {
		content, err := s.narrator.Prepare(ctx, lessonID, cfg, lessonText)
		if err != nil {
			return nil, fmt.Errorf("preparing lesson narration: %w", err)
		}
		if content != nil {
			sess.AudioSegments = append(sess.AudioSegments, content.Segments...)
			sess.TotalDuration = content.Duration()
		}
	}

	if err := s.store.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating voice session: %w", err)
	}

	slog.Info("voice session created",
		"session_id", sess.SessionID,
		"student_id", studentID,
		"lesson_id", lessonID,
		"voice_style", cfg.VoiceStyle,
		"segments", len(sess.AudioSegments))
	return sess, nil
}

// UpdateStatus changes a session's status and, when currentSegment is
// non-nil, its playback position.
func (s *Service) UpdateStatus(ctx context.Context, sessionID string, status Status, currentSegment *int) error {
	if err := required("sessionId", sessionID); err != nil {
		return err
	}
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("must be one of active, paused, completed, cancelled (got %q)", status)}
	}
	if currentSegment != nil && *currentSegment < 0 {
		return &ValidationError{Field: "currentSegment", Reason: "must not be negative"}
	}

	if err := s.store.UpdateStatus(ctx, sessionID, status, currentSegment, FormatTime(s.now())); err != nil {
		return fmt.Errorf("updating session status: %w", err)
	}

	slog.Info("voice session status updated", "session_id", sessionID, "status", status)
	return nil
}

// Get returns a session, or nil when it does not exist.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	if err := required("sessionId", sessionID); err != nil {
		return nil, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting voice session: %w", err)
	}
	if sess != nil {
		sess.normalize()
	}
	return sess, nil
}

// Active returns the student's active session for a lesson, or nil.
func (s *Service) Active(ctx context.Context, studentID, lessonID string) (*Session, error) {
	if err := required("studentId", studentID); err != nil {
		return nil, err
	}
	if err := required("lessonId", lessonID); err != nil {
		return nil, err
	}
	sess, err := s.store.FindActive(ctx, studentID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("getting active session: %w", err)
	}
	if sess != nil {
		sess.normalize()
	}
	return sess, nil
}

// SaveMessage records one conversation turn.
func (s *Service) SaveMessage(ctx context.Context, in MessageInput) (*Message, error) {
	if err := required("sessionId", in.SessionID); err != nil {
		return nil, err
	}
	if err := required("studentId", in.StudentID); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("must be one of student_audio, ai_response, system (got %q)", in.Type)}
	}

	now := s.now()
	msg := &Message{
		MessageID: NewID("msg", now),
		SessionID: in.SessionID,
		StudentID: in.StudentID,
		Type:      in.Type,
		Content:   in.Content,
		AudioURL:  in.AudioURL,
		Timestamp: FormatTime(now),
		Metadata:  in.Metadata,
	}

	if err := s.store.PutMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("saving conversation message: %w", err)
	}

	slog.Debug("conversation message saved", "session_id", in.SessionID, "message_id", msg.MessageID, "type", in.Type)
	return msg, nil
}

// History returns a session's conversation in chronological order.
func (s *Service) History(ctx context.Context, sessionID string) ([]Message, error) {
	if err := required("sessionId", sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting conversation history: %w", err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}
