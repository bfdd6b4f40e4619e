package awsutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognia-intellilearn/voicegate/internal/config"
)

func TestNewSessionRegionAndEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	sess, err := NewSession(config.AWSConfig{Region: "eu-west-1", Endpoint: "http://localhost:4566"})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", aws.StringValue(sess.Config.Region))
	assert.Equal(t, "http://localhost:4566", aws.StringValue(sess.Config.Endpoint))
	assert.True(t, aws.BoolValue(sess.Config.S3ForcePathStyle))
}

func TestMessage(t *testing.T) {
	throttled := awserr.New("ThrottlingException", "Rate exceeded", nil)
	assert.Equal(t, "Rate exceeded", Message(throttled))
	assert.Equal(t, "Rate exceeded", Message(fmt.Errorf("polly: %w", throttled)))
	assert.Equal(t, "AccessDenied", Message(awserr.New("AccessDenied", "", nil)))
	assert.Equal(t, "", Message(errors.New("plain")))
}
