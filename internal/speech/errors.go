package speech

import (
	"errors"
	"net/http"

	"github.com/cognia-intellilearn/voicegate/internal/awsutil"
	"github.com/cognia-intellilearn/voicegate/internal/tts"
)

// User-visible failure messages.
const (
	MsgTextRequired = "Text is required"
	MsgNoAudio      = "No audio stream received from Polly"
	MsgFallback     = "Failed to synthesize speech"
)

// Kind classifies gateway failures.
type Kind int

const (
	// KindValidation is a client error: the request is unusable as sent.
	KindValidation Kind = iota + 1
	// KindEmptyResponse means the provider succeeded but sent no audio.
	KindEmptyResponse
	// KindProvider covers every other failure: the provider call, stream
	// consumption, timeouts and publishing.
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEmptyResponse:
		return "empty_response"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by the Gateway.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status code clients see for the failure.
func (e *Error) HTTPStatus() int {
	if e.Kind == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// classify folds any failure from synthesis or publishing into an *Error.
func classify(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	if errors.Is(err, tts.ErrEmptyAudio) {
		return &Error{Kind: KindEmptyResponse, Message: MsgNoAudio, Err: err}
	}
	return &Error{Kind: KindProvider, Message: providerMessage(err), Err: err}
}

// providerMessage prefers the AWS API message, then the innermost error in
// the chain, so wrapping context added on the way up is not shown to clients.
func providerMessage(err error) string {
	if msg := awsutil.Message(err); msg != "" {
		return msg
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	if msg := root.Error(); msg != "" {
		return msg
	}
	return MsgFallback
}
