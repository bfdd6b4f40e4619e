// Package tts defines the interface for text-to-speech synthesis.
//
// voicegate turns lesson text into spoken audio through a Synthesizer. The
// only production backend is Amazon Polly (see the polly subpackage), but the
// gateway depends on this interface alone so tests can swap in fakes.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyAudio is returned when the provider answers without any audio.
var ErrEmptyAudio = errors.New("tts: provider returned no audio stream")

// Output formats, engines and sample rates understood by synthesizers.
const (
	FormatMP3     = "mp3"
	EngineNeural  = "neural"
	SampleRate22k = "22050"

	ContentTypeMPEG = "audio/mpeg"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice is the provider voice identifier (e.g., "Matthew", "Amy").
	Voice string

	// OutputFormat is the audio container requested from the provider.
	OutputFormat string

	// Engine selects the provider's synthesis tier.
	Engine string

	// SampleRate is the requested sample rate in Hz, as a decimal string.
	SampleRate string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates audio for text. Implementations make exactly one
	// provider call and do not retry.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the complete encoded audio payload.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/mpeg").
	ContentType string
}

// Collect drains a provider audio stream into one contiguous buffer,
// appending chunks strictly in the order they are read. A nil stream or
// one that yields no bytes is reported as ErrEmptyAudio.
func Collect(stream io.Reader) ([]byte, error) {
	if stream == nil {
		return nil, ErrEmptyAudio
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return nil, fmt.Errorf("reading audio stream: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyAudio
	}
	return buf.Bytes(), nil
}
