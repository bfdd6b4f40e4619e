// Package message defines the JSON request and response bodies exchanged
// over the voicegate HTTP API.
package message

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// DataURLPrefix precedes the base64 body of every inline MP3 payload.
const DataURLPrefix = "data:audio/mpeg;base64,"

// SynthesisRequest is the body of POST /api/polly and /api/polly/publish.
type SynthesisRequest struct {
	// Text is the content to speak. Required and non-empty.
	Text string `json:"text" example:"Welcome to today's lesson on photosynthesis."`

	// VoiceStyle selects the voice (formal, casual, energetic, calm,
	// professional). Nil means the field was absent and the default style
	// applies. An explicit JSON null decodes to "" and, like any unknown
	// label, falls back to the formal voice.
	VoiceStyle *string `json:"voiceStyle,omitempty" example:"calm"`
}

// UnmarshalJSON keeps an explicit "voiceStyle": null apart from an absent
// field.
func (r *SynthesisRequest) UnmarshalJSON(data []byte) error {
	type plain SynthesisRequest
	var raw struct {
		plain
		VoiceStyle json.RawMessage `json:"voiceStyle"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = SynthesisRequest(raw.plain)
	r.VoiceStyle = nil
	switch {
	case raw.VoiceStyle == nil:
	case bytes.Equal(raw.VoiceStyle, []byte("null")):
		r.VoiceStyle = new(string)
	default:
		var style string
		if err := json.Unmarshal(raw.VoiceStyle, &style); err != nil {
			return err
		}
		r.VoiceStyle = &style
	}
	return nil
}

// SynthesisResponse is the body returned by the synthesis endpoints.
type SynthesisResponse struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audioUrl,omitempty" example:"data:audio/mpeg;base64,SUQzBAAAAAAA..."`
	Error    string `json:"error,omitempty"`
}

// EncodeDataURL wraps MP3 bytes in a data URL.
func EncodeDataURL(audio []byte) string {
	return DataURLPrefix + base64.StdEncoding.EncodeToString(audio)
}

// DecodeDataURL reverses EncodeDataURL. ok is false when url is not an MP3
// data URL or its body is not valid base64.
func DecodeDataURL(url string) (audio []byte, ok bool) {
	body, found := strings.CutPrefix(url, DataURLPrefix)
	if !found {
		return nil, false
	}
	audio, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, false
	}
	return audio, true
}
