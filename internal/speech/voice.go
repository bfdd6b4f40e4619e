package speech

// DefaultStyle is applied when a request omits voiceStyle.
const DefaultStyle = "professional"

// DefaultVoice is used for any style label missing from the style table.
const DefaultVoice = "Matthew"

var voiceStyles = map[string]string{
	"formal":       "Matthew",
	"casual":       "Joanna",
	"energetic":    "Justin",
	"calm":         "Amy",
	"professional": "Brian",
}

// VoiceFor maps a voice style label to a Polly voice identifier.
// Unknown labels resolve to DefaultVoice.
func VoiceFor(style string) string {
	if voice, ok := voiceStyles[style]; ok {
		return voice
	}
	return DefaultVoice
}

// Styles returns the supported style labels and their voices.
func Styles() map[string]string {
	out := make(map[string]string, len(voiceStyles))
	for style, voice := range voiceStyles {
		out[style] = voice
	}
	return out
}
