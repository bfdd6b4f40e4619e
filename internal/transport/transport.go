// Package transport defines the interface for pluggable voicegate transports.
//
// The HTTP transport serves the JSON API; the gRPC transport serves the
// standard health protocol for service meshes. Both receive the same
// Backend and neither cares how the other is configured.
package transport

import (
	"context"

	"github.com/cognia-intellilearn/voicegate/internal/message"
)

// SpeechService synthesizes speech for API requests.
type SpeechService interface {
	// Synthesize returns the audio as an inline data URL.
	Synthesize(ctx context.Context, req *message.SynthesisRequest) (string, error)

	// Publish uploads the audio and returns its URL.
	Publish(ctx context.Context, req *message.SynthesisRequest) (string, error)

	// CanPublish reports whether Publish is configured.
	CanPublish() bool
}

// SessionHandler runs a single voice session action.
type SessionHandler func(ctx context.Context, req *message.SessionRequest) (*message.SessionResponse, error)

// Backend bundles the services a transport exposes.
type Backend struct {
	Speech   SpeechService
	Sessions SessionHandler
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts serving the backend. It blocks until the context is cancelled.
	Listen(ctx context.Context, backend Backend) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
