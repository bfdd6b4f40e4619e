// Package session manages voice tutoring sessions and their conversation
// history.
//
// A Session ties a student to a lesson with the voice configuration chosen
// for it. Messages record every turn of the spoken conversation. Storage is
// pluggable through Store: DynamoDB in production, an in-memory map for
// local development and tests.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// MessageType identifies who produced a conversation message.
type MessageType string

const (
	MessageStudentAudio MessageType = "student_audio"
	MessageAIResponse   MessageType = "ai_response"
	MessageSystem       MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageStudentAudio, MessageAIResponse, MessageSystem:
		return true
	}
	return false
}

// TimeFormat is RFC 3339 in UTC with millisecond precision. Conversation
// history sorts on it lexicographically.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// ErrNotFound is returned when an update targets a session that does not exist.
var ErrNotFound = errors.New("session not found")

// ValidationError reports an unusable request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// Config is the voice configuration a student picked for a session.
type Config struct {
	VoiceSpeed       string `json:"voiceSpeed" dynamodbav:"voiceSpeed"`
	VoiceStyle       string `json:"voiceStyle" dynamodbav:"voiceStyle"`
	Duration         int    `json:"duration" dynamodbav:"duration"`
	InteractionLevel string `json:"interactionLevel" dynamodbav:"interactionLevel"`
	AIModel          string `json:"aiModel" dynamodbav:"aiModel"`
	Personality      string `json:"personality" dynamodbav:"personality"`
	Topic            string `json:"topic" dynamodbav:"topic"`
	Level            string `json:"level" dynamodbav:"level"`
}

// AudioSegment is one narrated chunk of lesson content.
type AudioSegment struct {
	SegmentID      string  `json:"segmentId" dynamodbav:"segmentId"`
	SequenceNumber int     `json:"sequenceNumber" dynamodbav:"sequenceNumber"`
	Text           string  `json:"text" dynamodbav:"text"`
	AudioURL       string  `json:"audioUrl,omitempty" dynamodbav:"audioUrl,omitempty"`
	Duration       float64 `json:"duration" dynamodbav:"duration"`
	IsProcessed    bool    `json:"isProcessed" dynamodbav:"isProcessed"`
}

// Session is a student's voice session for one lesson.
type Session struct {
	SessionID      string         `json:"sessionId" dynamodbav:"sessionId"`
	StudentID      string         `json:"studentId" dynamodbav:"studentId"`
	LessonID       string         `json:"lessonId" dynamodbav:"lessonId"`
	CourseID       string         `json:"courseId" dynamodbav:"courseId"`
	Config         Config         `json:"config" dynamodbav:"config"`
	Status         Status         `json:"status" dynamodbav:"status"`
	CreatedAt      string         `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      string         `json:"updatedAt" dynamodbav:"updatedAt"`
	TotalDuration  float64        `json:"totalDuration" dynamodbav:"totalDuration"`
	CurrentSegment int            `json:"currentSegment" dynamodbav:"currentSegment"`
	AudioSegments  []AudioSegment `json:"audioSegments" dynamodbav:"audioSegments"`
}

// Content is narrated lesson material: the lesson text split into segments,
// each synthesized and published once and reused by later sessions of the
// same lesson, topic and level.
type Content struct {
	ContentID     string         `json:"contentId" dynamodbav:"contentId"`
	LessonID      string         `json:"lessonId" dynamodbav:"lessonId"`
	Topic         string         `json:"topic" dynamodbav:"topic"`
	Level         string         `json:"level" dynamodbav:"level"`
	GeneratedText string         `json:"generatedText" dynamodbav:"generatedText"`
	Segments      []AudioSegment `json:"segments" dynamodbav:"segments"`
	CreatedAt     string         `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     string         `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
	IsProcessed   bool           `json:"isProcessed" dynamodbav:"isProcessed"`
}

// Duration sums the segment durations in seconds.
func (c *Content) Duration() float64 {
	var total float64
	for _, seg := range c.Segments {
		total += seg.Duration
	}
	return total
}

func (c *Content) clone() *Content {
	out := *c
	out.Segments = append([]AudioSegment{}, c.Segments...)
	return &out
}

// Message is a single turn in a session's conversation.
type Message struct {
	MessageID string         `json:"messageId" dynamodbav:"messageId"`
	SessionID string         `json:"sessionId" dynamodbav:"sessionId"`
	StudentID string         `json:"studentId" dynamodbav:"studentId"`
	Type      MessageType    `json:"type" dynamodbav:"type"`
	Content   string         `json:"content" dynamodbav:"content"`
	AudioURL  string         `json:"audioUrl,omitempty" dynamodbav:"audioUrl,omitempty"`
	Timestamp string         `json:"timestamp" dynamodbav:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// MessageInput carries the caller-supplied fields of a new Message.
type MessageInput struct {
	SessionID string
	StudentID string
	Type      MessageType
	Content   string
	AudioURL  string
	Metadata  map[string]any
}

// NewID builds identifiers of the form <prefix>_<unix-ms>_<9 alnum>.
func NewID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func (s *Session) normalize() {
	if s.AudioSegments == nil {
		s.AudioSegments = []AudioSegment{}
	}
}

func (s *Session) clone() *Session {
	c := *s
	c.AudioSegments = append([]AudioSegment{}, s.AudioSegments...)
	return &c
}
