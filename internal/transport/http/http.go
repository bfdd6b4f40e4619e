// Package http implements the HTTP transport for voicegate.
//
// This transport exposes the JSON API used by the learning platform:
// speech synthesis (inline or published) and voice session actions. Every
// response carries a "success" flag; failures add an "error" message and
// the matching status code.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/cognia-intellilearn/voicegate/docs" // registers the swagger docs
	"github.com/cognia-intellilearn/voicegate/internal/message"
	"github.com/cognia-intellilearn/voicegate/internal/transport"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// MsgInvalidBody is returned for bodies that are not the expected JSON.
const MsgInvalidBody = "Invalid request body"

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port         int
	maxBodyBytes int64

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP transport on the given port. Request bodies larger
// than maxBodyBytes are rejected; zero means 1 MiB.
func New(port int, maxBodyBytes int64) *Transport {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Transport{port: port, maxBodyBytes: maxBodyBytes}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the backend.
func (t *Transport) Listen(ctx context.Context, backend transport.Backend) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(backend),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	slog.Info("http transport listening", "port", t.port, "publish", backend.Speech.CanPublish())

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Handler builds the API router.
func (t *Transport) Handler(backend transport.Backend) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/polly", func(w http.ResponseWriter, r *http.Request) {
		t.handleSynthesize(w, r, backend.Speech)
	})

	if backend.Speech.CanPublish() {
		mux.HandleFunc("POST /api/polly/publish", func(w http.ResponseWriter, r *http.Request) {
			t.handlePublish(w, r, backend.Speech)
		})
	}

	mux.HandleFunc("POST /api/voice-session", func(w http.ResponseWriter, r *http.Request) {
		t.handleVoiceSession(w, r, backend.Sessions)
	})

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return withRequestID(mux)
}

// handleSynthesize processes a POST /api/polly request.
//
// @Summary     Synthesize speech
// @Description Converts text to MP3 speech with Amazon Polly (neural engine, 22050 Hz) and returns it inline
// @Description as a data URL. voiceStyle selects the voice: formal=Matthew, casual=Joanna, energetic=Justin,
// @Description calm=Amy, professional=Brian (default). Unknown styles use Matthew.
// @Tags        speech
// @Accept      json
// @Produce     json
// @Param       request  body      message.SynthesisRequest   true  "Text and optional voice style"
// @Success     200      {object}  message.SynthesisResponse  "Inline MP3 data URL"
// @Failure     400      {object}  message.SynthesisResponse  "Text is required"
// @Failure     500      {object}  message.SynthesisResponse  "Synthesis failed"
// @Router      /api/polly [post]
func (t *Transport) handleSynthesize(w http.ResponseWriter, r *http.Request, speech transport.SpeechService) {
	var req message.SynthesisRequest
	if !t.decode(w, r, &req) {
		writeJSON(w, http.StatusBadRequest, message.SynthesisResponse{Error: MsgInvalidBody})
		return
	}

	url, err := speech.Synthesize(r.Context(), &req)
	if err != nil {
		writeJSON(w, statusOf(err), message.SynthesisResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message.SynthesisResponse{Success: true, AudioURL: url})
}

// handlePublish processes a POST /api/polly/publish request.
//
// @Summary     Synthesize and publish speech
// @Description Same as /api/polly, but the MP3 is uploaded to S3 and the response carries its public URL.
// @Description Only registered when storage.bucket is configured.
// @Tags        speech
// @Accept      json
// @Produce     json
// @Param       request  body      message.SynthesisRequest   true  "Text and optional voice style"
// @Success     200      {object}  message.SynthesisResponse  "Public audio URL"
// @Failure     400      {object}  message.SynthesisResponse  "Text is required"
// @Failure     500      {object}  message.SynthesisResponse  "Synthesis or upload failed"
// @Router      /api/polly/publish [post]
func (t *Transport) handlePublish(w http.ResponseWriter, r *http.Request, speech transport.SpeechService) {
	var req message.SynthesisRequest
	if !t.decode(w, r, &req) {
		writeJSON(w, http.StatusBadRequest, message.SynthesisResponse{Error: MsgInvalidBody})
		return
	}

	url, err := speech.Publish(r.Context(), &req)
	if err != nil {
		writeJSON(w, statusOf(err), message.SynthesisResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message.SynthesisResponse{Success: true, AudioURL: url})
}

// handleVoiceSession processes a POST /api/voice-session request.
//
// @Summary     Run a voice session action
// @Description Dispatches on "action": create, updateStatus, getSession, getActiveSession, saveMessage, getHistory.
// @Description Unknown actions are rejected with "Invalid action".
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      message.SessionRequest   true  "Action and its fields"
// @Success     200      {object}  message.SessionResponse  "Action result"
// @Failure     400      {object}  message.SessionResponse  "Invalid action or missing fields"
// @Failure     404      {object}  message.SessionResponse  "Session not found"
// @Failure     500      {object}  message.SessionResponse  "Storage failure"
// @Router      /api/voice-session [post]
func (t *Transport) handleVoiceSession(w http.ResponseWriter, r *http.Request, handler transport.SessionHandler) {
	var req message.SessionRequest
	if !t.decode(w, r, &req) {
		writeJSON(w, http.StatusBadRequest, message.SessionResponse{Error: MsgInvalidBody})
		return
	}

	resp, err := handler(r.Context(), &req)
	if err != nil {
		writeJSON(w, statusOf(err), message.SessionResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// --- Internal helpers ---

// decode reads a size-limited JSON body into v.
func (t *Transport) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, t.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("invalid request body", "path", r.URL.Path, "error", err, "request_id", r.Header.Get(RequestIDHeader))
		return false
	}
	return true
}

// statusOf extracts the status carried by gateway and dispatcher errors.
func statusOf(err error) int {
	var withStatus interface{ HTTPStatus() int }
	if errors.As(err, &withStatus) {
		return withStatus.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("writing response", "error", err)
	}
}

// withRequestID tags every request with an id, reusing the caller's when sent.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "request_id", id, "duration", time.Since(start))
	})
}
