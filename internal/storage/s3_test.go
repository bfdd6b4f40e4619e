package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognia-intellilearn/voicegate/internal/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

var keyPattern = regexp.MustCompile(`^voice-responses/response_1772443800000_[0-9a-f]{9}\.mp3$`)

func fixedNow() time.Time { return time.UnixMilli(1772443800000) }

func TestPublishWithCDN(t *testing.T) {
	api := &fakeS3{}
	p := NewS3PublisherWithAPI(api, config.StorageConfig{
		Bucket:        "lesson-audio",
		Prefix:        "voice-responses/",
		PublicBaseURL: "https://cdn.example.com/",
	}, "us-east-1")
	p.now = fixedNow

	url, err := p.Publish(context.Background(), []byte("mp3"), "audio/mpeg", map[string]string{
		"voiceStyle":  "calm",
		"generatedAt": "2026-03-02T09:30:00.000Z",
		"textLength":  "11",
	})
	require.NoError(t, err)

	key := aws.StringValue(api.input.Key)
	assert.Regexp(t, keyPattern, key)
	assert.Equal(t, "https://cdn.example.com/"+key, url)
	assert.Equal(t, "lesson-audio", aws.StringValue(api.input.Bucket))
	assert.Equal(t, "audio/mpeg", aws.StringValue(api.input.ContentType))
	assert.Equal(t, int64(3), aws.Int64Value(api.input.ContentLength))
	assert.Equal(t, []byte("mp3"), api.body)
	assert.Equal(t, map[string]string{
		"voiceStyle":  "calm",
		"generatedAt": "2026-03-02T09:30:00.000Z",
		"textLength":  "11",
	}, aws.StringValueMap(api.input.Metadata))
}

func TestPublishDefaultURL(t *testing.T) {
	api := &fakeS3{}
	p := NewS3PublisherWithAPI(api, config.StorageConfig{Bucket: "lesson-audio", Prefix: "voice-responses"}, "eu-west-1")
	p.now = fixedNow

	url, err := p.Publish(context.Background(), []byte("mp3"), "audio/mpeg", nil)
	require.NoError(t, err)
	assert.Nil(t, api.input.Metadata)
	assert.Regexp(t, `^https://lesson-audio\.s3\.eu-west-1\.amazonaws\.com/voice-responses/response_`, url)
}

func TestPublishError(t *testing.T) {
	denied := errors.New("AccessDenied")
	p := NewS3PublisherWithAPI(&fakeS3{err: denied}, config.StorageConfig{Bucket: "b"}, "us-east-1")

	url, err := p.Publish(context.Background(), []byte("mp3"), "audio/mpeg", nil)
	assert.Empty(t, url)
	assert.ErrorIs(t, err, denied)
}

func TestPutObjectExplicitKey(t *testing.T) {
	api := &fakeS3{}
	p := NewS3PublisherWithAPI(api, config.StorageConfig{Bucket: "lesson-audio", PublicBaseURL: "https://cdn.example.com"}, "us-east-1")

	url, err := p.PutObject(context.Background(), "voice-sessions/vc_1/seg_1_1.mp3", []byte("seg"), "audio/mpeg",
		map[string]string{"contentId": "vc_1", "segmentId": "seg_1_1", "sequenceNumber": "1"})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/voice-sessions/vc_1/seg_1_1.mp3", url)
	assert.Equal(t, "voice-sessions/vc_1/seg_1_1.mp3", aws.StringValue(api.input.Key))
	assert.Equal(t, "1", aws.StringValue(api.input.Metadata["sequenceNumber"]))
}
