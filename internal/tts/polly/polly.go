// Package polly implements the TTS Synthesizer on top of Amazon Polly.
//
// Each Synthesize call issues a single SynthesizeSpeech request and drains
// the returned AudioStream. The client is created once per process and is
// safe for concurrent use.
package polly

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/polly"

	"github.com/cognia-intellilearn/voicegate/internal/tts"
)

// API is the subset of the Polly client used by the synthesizer.
type API interface {
	SynthesizeSpeechWithContext(ctx aws.Context, input *polly.SynthesizeSpeechInput, opts ...request.Option) (*polly.SynthesizeSpeechOutput, error)
}

// Synthesizer implements tts.Synthesizer using Amazon Polly.
type Synthesizer struct {
	api API
}

// New creates a Polly synthesizer from an AWS session.
func New(sess client.ConfigProvider) *Synthesizer {
	return NewWithAPI(polly.New(sess))
}

// NewWithAPI wraps an existing Polly client.
func NewWithAPI(api API) *Synthesizer {
	return &Synthesizer{api: api}
}

// Synthesize sends text to Polly and returns the complete audio payload.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      aws.String(opts.Voice),
		OutputFormat: aws.String(valueOr(opts.OutputFormat, polly.OutputFormatMp3)),
		Engine:       aws.String(valueOr(opts.Engine, polly.EngineNeural)),
		SampleRate:   aws.String(valueOr(opts.SampleRate, tts.SampleRate22k)),
	}

	slog.Debug("polly synthesize", "text_length", len(text), "voice", opts.Voice, "engine", *input.Engine)

	out, err := s.api.SynthesizeSpeechWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("polly synthesize speech: %w", err)
	}
	if out.AudioStream != nil {
		defer out.AudioStream.Close()
	}

	audio, err := tts.Collect(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("polly audio: %w", err)
	}

	slog.Debug("polly audio received", "bytes", len(audio), "characters", aws.Int64Value(out.RequestCharacters))

	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: valueOr(aws.StringValue(out.ContentType), tts.ContentTypeMPEG),
	}, nil
}

// Close is a no-op, the SDK client holds no per-request resources.
func (s *Synthesizer) Close() error { return nil }

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
