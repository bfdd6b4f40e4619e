// Package dispatch routes voice session actions to the session service.
//
// Each request names an action (create, updateStatus, getSession,
// getActiveSession, saveMessage, getHistory) plus the fields that action
// reads. The dispatcher validates the action, calls the service and folds
// every failure into an *Error carrying the HTTP status the caller sees.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cognia-intellilearn/voicegate/internal/message"
	"github.com/cognia-intellilearn/voicegate/internal/session"
)

// User-visible failure messages.
const (
	MsgInvalidAction   = "Invalid action"
	MsgSessionNotFound = "Session not found"
	MsgUnknownError    = "Unknown error"
)

// SessionService is the session API the dispatcher drives.
type SessionService interface {
	Create(ctx context.Context, studentID, lessonID, courseID string, cfg session.Config, lessonText string) (*session.Session, error)
	UpdateStatus(ctx context.Context, sessionID string, status session.Status, currentSegment *int) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Active(ctx context.Context, studentID, lessonID string) (*session.Session, error)
	SaveMessage(ctx context.Context, in session.MessageInput) (*session.Message, error)
	History(ctx context.Context, sessionID string) ([]session.Message, error)
}

// Error is a dispatch failure with its HTTP status.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status code clients see for the failure.
func (e *Error) HTTPStatus() int { return e.Code }

// Dispatcher is the voice session action router.
type Dispatcher struct {
	sessions SessionService
}

// New creates a new Dispatcher over a session service.
func New(sessions SessionService) *Dispatcher {
	return &Dispatcher{sessions: sessions}
}

// Handle runs a single action. Failures are always returned as *Error.
func (d *Dispatcher) Handle(ctx context.Context, req *message.SessionRequest) (*message.SessionResponse, error) {
	start := time.Now()
	logger := slog.With("action", req.Action, "session_id", req.SessionID)

	resp, err := d.route(ctx, req)
	if err != nil {
		dErr := classify(err)
		if dErr.Code >= http.StatusInternalServerError {
			logger.Error("voice session action failed", "error", err)
		} else {
			logger.Warn("voice session action rejected", "status", dErr.Code, "error", err)
		}
		return nil, dErr
	}

	logger.Debug("voice session action complete", "duration", time.Since(start))
	return resp, nil
}

// --- Internal helpers ---

func (d *Dispatcher) route(ctx context.Context, req *message.SessionRequest) (*message.SessionResponse, error) {
	switch req.Action {
	case message.ActionCreate:
		var cfg session.Config
		if req.Config != nil {
			cfg = *req.Config
		}
		s, err := d.sessions.Create(ctx, req.StudentID, req.LessonID, req.CourseID, cfg, req.LessonText)
		if err != nil {
			return nil, err
		}
		return message.SessionResult(s), nil

	case message.ActionUpdateStatus:
		if err := d.sessions.UpdateStatus(ctx, req.SessionID, session.Status(req.Status), req.CurrentSegment); err != nil {
			return nil, err
		}
		return message.OK(), nil

	case message.ActionGetSession:
		s, err := d.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		return message.SessionResult(s), nil

	case message.ActionGetActiveSession:
		s, err := d.sessions.Active(ctx, req.StudentID, req.LessonID)
		if err != nil {
			return nil, err
		}
		return message.SessionResult(s), nil

	case message.ActionSaveMessage:
		m, err := d.sessions.SaveMessage(ctx, session.MessageInput{
			SessionID: req.SessionID,
			StudentID: req.StudentID,
			Type:      session.MessageType(req.Type),
			Content:   req.Content,
			AudioURL:  req.AudioURL,
			Metadata:  req.Metadata,
		})
		if err != nil {
			return nil, err
		}
		return message.MessageResult(m), nil

	case message.ActionGetHistory:
		history, err := d.sessions.History(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		return message.HistoryResult(history), nil

	default:
		return nil, &Error{Code: http.StatusBadRequest, Message: MsgInvalidAction}
	}
}

func classify(err error) *Error {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr
	}
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		return &Error{Code: http.StatusBadRequest, Message: verr.Error(), Err: err}
	}
	if errors.Is(err, session.ErrNotFound) {
		return &Error{Code: http.StatusNotFound, Message: MsgSessionNotFound, Err: err}
	}
	msg := err.Error()
	if msg == "" {
		msg = MsgUnknownError
	}
	return &Error{Code: http.StatusInternalServerError, Message: msg, Err: err}
}
