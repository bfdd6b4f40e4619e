package message

import (
	"encoding/json"

	"github.com/cognia-intellilearn/voicegate/internal/session"
)

// Session actions accepted by POST /api/voice-session.
const (
	ActionCreate           = "create"
	ActionUpdateStatus     = "updateStatus"
	ActionGetSession       = "getSession"
	ActionGetActiveSession = "getActiveSession"
	ActionSaveMessage      = "saveMessage"
	ActionGetHistory       = "getHistory"
)

// SessionRequest is the body of POST /api/voice-session. Which fields are
// read depends on Action.
type SessionRequest struct {
	Action string `json:"action" example:"create"`

	SessionID string `json:"sessionId,omitempty" example:"vs_1772443800000_k3j9x0a1b"`
	StudentID string `json:"studentId,omitempty" example:"student-42"`
	LessonID  string `json:"lessonId,omitempty" example:"lesson-photosynthesis"`
	CourseID  string `json:"courseId,omitempty" example:"biology-101"`

	// Config and LessonText are used by create. LessonText is the lesson
	// material to narrate; it may use [SEGMENT N] markers.
	Config     *session.Config `json:"config,omitempty"`
	LessonText string          `json:"lessonText,omitempty" example:"[SEGMENT 1] Plants turn light into sugar."`

	// Status and CurrentSegment are used by updateStatus.
	Status         string `json:"status,omitempty" example:"paused"`
	CurrentSegment *int   `json:"currentSegment,omitempty"`

	// Type, Content, AudioURL and Metadata are used by saveMessage.
	Type     string         `json:"type,omitempty" example:"student_audio"`
	Content  string         `json:"content,omitempty"`
	AudioURL string         `json:"audioUrl,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SessionResponse is the body returned by POST /api/voice-session.
//
// Session is always present for create, getSession and getActiveSession,
// serialized as null when no session matches.
type SessionResponse struct {
	Success bool              `json:"success"`
	Session *session.Session  `json:"session"`
	Message *session.Message  `json:"message,omitempty"`
	History []session.Message `json:"history,omitempty"`
	Error   string            `json:"error,omitempty"`

	includeSession bool
	includeHistory bool
}

// MarshalJSON emits only the fields relevant to the action that produced
// the response.
func (r SessionResponse) MarshalJSON() ([]byte, error) {
	out := map[string]any{"success": r.Success}
	if r.includeSession {
		out["session"] = r.Session
	}
	if r.Message != nil {
		out["message"] = r.Message
	}
	if r.includeHistory {
		history := r.History
		if history == nil {
			history = []session.Message{}
		}
		out["history"] = history
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

// SessionResult builds a success response carrying a (possibly nil) session.
func SessionResult(s *session.Session) *SessionResponse {
	return &SessionResponse{Success: true, Session: s, includeSession: true}
}

// HistoryResult builds a success response carrying a conversation history.
func HistoryResult(history []session.Message) *SessionResponse {
	return &SessionResponse{Success: true, History: history, includeHistory: true}
}

// MessageResult builds a success response carrying a saved message.
func MessageResult(m *session.Message) *SessionResponse {
	return &SessionResponse{Success: true, Message: m}
}

// OK builds a bare success response.
func OK() *SessionResponse {
	return &SessionResponse{Success: true}
}
