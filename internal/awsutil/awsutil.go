// Package awsutil builds the shared AWS SDK session used by the Polly,
// DynamoDB and S3 clients.
package awsutil

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/cognia-intellilearn/voicegate/internal/config"
)

// NewSession creates one AWS session for the whole process. Credentials are
// resolved by the SDK default chain (environment, shared config, IAM role).
func NewSession(cfg config.AWSConfig) (*session.Session, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		Profile:           cfg.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return sess, nil
}

// Message returns the human-readable part of an AWS API error found in
// err's chain, or "" when there is none.
func Message(err error) string {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		if msg := aerr.Message(); msg != "" {
			return msg
		}
		return aerr.Code()
	}
	return ""
}
