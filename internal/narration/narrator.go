// Package narration turns lesson text into narrated audio segments.
//
// A Narrator splits the lesson into segments, synthesizes each one with
// Polly on a shared worker pool, uploads the MP3s to S3 and records the
// result in the content store. Processed content is reused by later
// sessions of the same lesson, topic and level. When a session is created
// without lesson text, an optional Writer (Bedrock) produces it.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/cognia-intellilearn/voicegate/internal/session"
	"github.com/cognia-intellilearn/voicegate/internal/speech"
	"github.com/cognia-intellilearn/voicegate/internal/tts"
)

// DefaultPrefix is the key prefix narrated segments are stored under.
const DefaultPrefix = "voice-sessions"

// Uploader stores one object under an explicit key and returns its public URL.
type Uploader interface {
	PutObject(ctx context.Context, key string, audio []byte, contentType string, metadata map[string]string) (string, error)
}

// Writer produces lesson text for a session configuration.
type Writer interface {
	Write(ctx context.Context, cfg session.Config) (string, error)
}

// Narrator implements session.Narrator.
type Narrator struct {
	contents session.ContentStore
	synth    tts.Synthesizer
	uploader Uploader
	pool     *ants.Pool
	writer   Writer
	prefix   string
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithWriter generates lesson text when a session is created without any.
func WithWriter(w Writer) Option {
	return func(n *Narrator) { n.writer = w }
}

// WithPrefix sets the key prefix for uploaded segments.
func WithPrefix(prefix string) Option {
	return func(n *Narrator) {
		if p := strings.Trim(prefix, "/"); p != "" {
			n.prefix = p
		}
	}
}

// WithTimeout bounds each segment's synthesis call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(n *Narrator) { n.timeout = d }
}

// New creates a Narrator. Segments are synthesized concurrently on pool.
func New(contents session.ContentStore, synth tts.Synthesizer, uploader Uploader, pool *ants.Pool, opts ...Option) *Narrator {
	n := &Narrator{
		contents: contents,
		synth:    synth,
		uploader: uploader,
		pool:     pool,
		prefix:   DefaultPrefix,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Prepare returns narrated content for the lesson. Processed content already
// stored for the lesson, topic and level is returned as is. Otherwise
// lessonText, or the Writer's output when lessonText is blank, is split,
// synthesized and uploaded. It returns nil, nil when there is no text.
func (n *Narrator) Prepare(ctx context.Context, lessonID string, cfg session.Config, lessonText string) (*session.Content, error) {
	cached, err := n.contents.FindContent(ctx, lessonID, cfg.Topic, cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("looking up voice content: %w", err)
	}
	if cached != nil {
		slog.Info("reusing narrated content", "lesson_id", lessonID, "content_id", cached.ContentID, "segments", len(cached.Segments))
		return cached, nil
	}

	text := lessonText
	if strings.TrimSpace(text) == "" {
		if n.writer == nil {
			return nil, nil
		}
		if text, err = n.writer.Write(ctx, cfg); err != nil {
			return nil, fmt.Errorf("generating lesson text: %w", err)
		}
	}

	now := n.now()
	segments := Split(text, cfg.Duration, now)
	if len(segments) == 0 {
		return nil, nil
	}

	content := &session.Content{
		ContentID:     session.NewID("vc", now),
		LessonID:      lessonID,
		Topic:         cfg.Topic,
		Level:         cfg.Level,
		GeneratedText: text,
		Segments:      segments,
		CreatedAt:     session.FormatTime(now),
	}
	if err := n.contents.PutContent(ctx, content); err != nil {
		return nil, fmt.Errorf("storing voice content: %w", err)
	}

	start := time.Now()
	if err := n.process(ctx, content, speech.VoiceFor(cfg.VoiceStyle)); err != nil {
		return nil, fmt.Errorf("processing audio segments: %w", err)
	}

	content.UpdatedAt = session.FormatTime(n.now())
	content.IsProcessed = true
	if err := n.contents.CompleteContent(ctx, lessonID, content.ContentID, content.Segments, content.UpdatedAt); err != nil {
		return nil, fmt.Errorf("storing narrated segments: %w", err)
	}

	slog.Info("lesson narrated",
		"lesson_id", lessonID,
		"content_id", content.ContentID,
		"segments", len(content.Segments),
		"duration_ms", time.Since(start).Milliseconds())
	return content, nil
}

// process narrates every segment on the pool. The first failure cancels the
// segments still pending.
func (n *Narrator) process(ctx context.Context, content *session.Content, voice string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i := range content.Segments {
		seg := &content.Segments[i]
		wg.Add(1)
		err := n.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := n.narrate(ctx, content.ContentID, seg, voice); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submitting segment %d: %w", seg.SequenceNumber, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// narrate synthesizes and uploads one segment. A segment the provider returns
// no audio for stays unprocessed.
func (n *Narrator) narrate(ctx context.Context, contentID string, seg *session.AudioSegment, voice string) error {
	synthCtx := ctx
	if n.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	res, err := n.synth.Synthesize(synthCtx, seg.Text, tts.SynthesizeOpts{
		Voice:        voice,
		OutputFormat: tts.FormatMP3,
		Engine:       tts.EngineNeural,
		SampleRate:   tts.SampleRate22k,
	})
	if err == nil && (res == nil || len(res.Audio) == 0) {
		err = tts.ErrEmptyAudio
	}
	if errors.Is(err, tts.ErrEmptyAudio) {
		slog.Warn("no audio for segment", "content_id", contentID, "segment_id", seg.SegmentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("synthesizing segment %d: %w", seg.SequenceNumber, err)
	}

	key := path.Join(n.prefix, contentID, seg.SegmentID+".mp3")
	url, err := n.uploader.PutObject(ctx, key, res.Audio, tts.ContentTypeMPEG, map[string]string{
		"contentId":      contentID,
		"segmentId":      seg.SegmentID,
		"sequenceNumber": strconv.Itoa(seg.SequenceNumber),
	})
	if err != nil {
		return fmt.Errorf("uploading segment %d: %w", seg.SequenceNumber, err)
	}

	seg.AudioURL = url
	seg.IsProcessed = true
	slog.Debug("segment narrated", "content_id", contentID, "segment_id", seg.SegmentID, "bytes", len(res.Audio))
	return nil
}
