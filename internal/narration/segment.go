package narration

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cognia-intellilearn/voicegate/internal/session"
)

// WordsPerMinute is the speaking pace used to cut unmarked lesson text.
const WordsPerMinute = 150

// SegmentDuration is the nominal length of one segment, in seconds.
const SegmentDuration = 60

var segmentMarker = regexp.MustCompile(`\[SEGMENT \d+\]`)

// Split cuts lesson text into ordered audio segments.
//
// Text carrying "[SEGMENT N]" markers is split at the markers: each segment
// is the trimmed text up to the next marker, text before the first marker is
// dropped, and empty segments are skipped without consuming a sequence
// number. Unmarked text is cut into WordsPerMinute-word chunks, one per
// minute; when minutes is not positive or too small to hold every word, the
// chunk count grows so no text is lost.
func Split(text string, minutes int, now time.Time) []session.AudioSegment {
	var parts []string
	if loc := segmentMarker.FindAllStringIndex(text, -1); len(loc) > 0 {
		for i, m := range loc {
			end := len(text)
			if i+1 < len(loc) {
				end = loc[i+1][0]
			}
			if part := strings.TrimSpace(text[m[1]:end]); part != "" {
				parts = append(parts, part)
			}
		}
	} else {
		parts = chunkWords(strings.Fields(text), minutes)
	}

	ms := now.UnixMilli()
	segments := make([]session.AudioSegment, 0, len(parts))
	for i, part := range parts {
		seq := i + 1
		segments = append(segments, session.AudioSegment{
			SegmentID:      fmt.Sprintf("seg_%d_%d", ms, seq),
			SequenceNumber: seq,
			Text:           part,
			Duration:       SegmentDuration,
		})
	}
	return segments
}

func chunkWords(words []string, minutes int) []string {
	if len(words) == 0 {
		return nil
	}
	n := minutes
	if need := (len(words) + WordsPerMinute - 1) / WordsPerMinute; n < need {
		n = need
	}

	var chunks []string
	for i := 0; i < n; i++ {
		start := i * WordsPerMinute
		if start >= len(words) {
			break
		}
		end := min(start+WordsPerMinute, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
