package narration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var splitTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func texts(t *testing.T, text string, minutes int) []string {
	t.Helper()
	var out []string
	for _, seg := range Split(text, minutes, splitTime) {
		out = append(out, seg.Text)
	}
	return out
}

func TestSplitMarkers(t *testing.T) {
	lesson := "Intro the model adds.\n[SEGMENT 1]\nPlants need light.\n\n[SEGMENT 2]\n   \n[SEGMENT 3] Chlorophyll is green.\nIt absorbs red and blue light."

	segments := Split(lesson, 3, splitTime)

	require.Len(t, segments, 2, "empty segments are skipped")
	assert.Equal(t, "Plants need light.", segments[0].Text)
	assert.Equal(t, "Chlorophyll is green.\nIt absorbs red and blue light.", segments[1].Text)

	for i, seg := range segments {
		assert.Equal(t, i+1, seg.SequenceNumber, "sequence numbers stay contiguous")
		assert.Equal(t, float64(SegmentDuration), seg.Duration)
		assert.False(t, seg.IsProcessed)
		assert.Empty(t, seg.AudioURL)
	}
	assert.Equal(t, "seg_1772443800000_1", segments[0].SegmentID)
	assert.Equal(t, "seg_1772443800000_2", segments[1].SegmentID)
}

func TestSplitByWordCount(t *testing.T) {
	words := make([]string, 320)
	for i := range words {
		words[i] = "word"
	}
	text := "  " + strings.Join(words, " \n ") + "  "

	tests := []struct {
		name    string
		minutes int
		lengths []int
	}{
		{"one chunk per minute", 3, []int{150, 150, 20}},
		{"extra minutes stay empty", 5, []int{150, 150, 20}},
		{"too few minutes keeps every word", 1, []int{150, 150, 20}},
		{"no duration", 0, []int{150, 150, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lengths []int
			for _, part := range texts(t, text, tt.minutes) {
				lengths = append(lengths, len(strings.Fields(part)))
			}
			assert.Equal(t, tt.lengths, lengths)
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split("", 5, splitTime))
	assert.Empty(t, Split(" \n\t", 5, splitTime))
	assert.Empty(t, Split("[SEGMENT 1]  [SEGMENT 2]\n", 2, splitTime))
}
