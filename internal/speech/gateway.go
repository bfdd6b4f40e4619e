// Package speech implements the speech synthesis gateway: it validates a
// request, resolves the voice style, runs one synthesis call under a timeout
// and returns the audio as an MP3 data URL (or publishes it to storage).
//
// Every failure leaves the gateway as an *Error carrying one of three kinds:
// validation (400), empty provider response (500) or provider failure (500).
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/cognia-intellilearn/voicegate/internal/message"
	"github.com/cognia-intellilearn/voicegate/internal/tts"
)

// ErrPublishingDisabled is returned by Publish when no Publisher is wired.
var ErrPublishingDisabled = errors.New("audio publishing is not configured")

// Publisher stores synthesized audio and returns a URL clients can fetch.
// metadata is kept alongside the object.
type Publisher interface {
	Publish(ctx context.Context, audio []byte, contentType string, metadata map[string]string) (string, error)
}

// Gateway turns synthesis requests into audio.
type Gateway struct {
	synth        tts.Synthesizer
	publisher    Publisher // nil when publishing is disabled
	timeout      time.Duration
	defaultStyle string
	now          func() time.Time
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithTimeout bounds each provider call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithDefaultStyle changes the style used when a request omits voiceStyle.
func WithDefaultStyle(style string) Option {
	return func(g *Gateway) {
		if style != "" {
			g.defaultStyle = style
		}
	}
}

// WithPublisher enables Publish.
func WithPublisher(p Publisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// New creates a Gateway around a synthesizer.
func New(synth tts.Synthesizer, opts ...Option) *Gateway {
	g := &Gateway{
		synth:        synth,
		timeout:      30 * time.Second,
		defaultStyle: DefaultStyle,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanPublish reports whether Publish is available.
func (g *Gateway) CanPublish() bool { return g.publisher != nil }

// Synthesize returns the request's audio as a data:audio/mpeg;base64 URL.
func (g *Gateway) Synthesize(ctx context.Context, req *message.SynthesisRequest) (string, error) {
	audio, _, err := g.synthesize(ctx, req)
	if err != nil {
		return "", err
	}
	return message.EncodeDataURL(audio), nil
}

// Publish synthesizes the request and uploads the audio, returning its URL.
func (g *Gateway) Publish(ctx context.Context, req *message.SynthesisRequest) (string, error) {
	if g.publisher == nil {
		return "", &Error{Kind: KindProvider, Message: ErrPublishingDisabled.Error(), Err: ErrPublishingDisabled}
	}
	audio, style, err := g.synthesize(ctx, req)
	if err != nil {
		return "", err
	}

	url, err := g.publisher.Publish(ctx, audio, tts.ContentTypeMPEG, map[string]string{
		"voiceStyle":  style,
		"generatedAt": g.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"textLength":  strconv.Itoa(utf8.RuneCountInString(req.Text)),
	})
	if err != nil {
		slog.Error("audio publish failed", "error", err, "bytes", len(audio))
		return "", classify(err)
	}
	slog.Info("audio published", "url", url, "bytes", len(audio))
	return url, nil
}

// --- Internal helpers ---

// synthesize returns the audio and the style label it was voiced with.
func (g *Gateway) synthesize(ctx context.Context, req *message.SynthesisRequest) ([]byte, string, error) {
	if req == nil || req.Text == "" {
		return nil, "", validationError(MsgTextRequired)
	}

	style := g.defaultStyle
	if req.VoiceStyle != nil {
		style = *req.VoiceStyle
	}
	voice := VoiceFor(style)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.synth.Synthesize(ctx, req.Text, tts.SynthesizeOpts{
		Voice:        voice,
		OutputFormat: tts.FormatMP3,
		Engine:       tts.EngineNeural,
		SampleRate:   tts.SampleRate22k,
	})
	if err == nil && (res == nil || len(res.Audio) == 0) {
		err = tts.ErrEmptyAudio
	}
	if err != nil {
		gwErr := classify(err)
		slog.Error("speech synthesis failed",
			"kind", gwErr.Kind.String(),
			"voice", voice,
			"error", err,
			"duration", time.Since(start))
		return nil, style, gwErr
	}

	slog.Info("speech synthesized",
		"style", style,
		"voice", voice,
		"text_length", len(req.Text),
		"audio_bytes", len(res.Audio),
		"duration", time.Since(start))
	return res.Audio, style, nil
}
