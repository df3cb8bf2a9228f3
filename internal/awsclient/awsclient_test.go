package awsclient

import (
	"context"
	"testing"

	"github.com/csveer/csveer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_StaticCredentials(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), config.AwsConfig{
		Region:          "eu-west-1",
		AccessKeyId:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestNewClients_Endpoint(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), config.AwsConfig{
		Region: "us-east-1", AccessKeyId: "a", SecretAccessKey: "b",
	})
	require.NoError(t, err)

	sqsClient := NewSQS(cfg, "http://localhost:4566")
	assert.Equal(t, "http://localhost:4566", *sqsClient.Options().BaseEndpoint)

	s3Client := NewS3(cfg, "http://localhost:4566", true)
	assert.True(t, s3Client.Options().UsePathStyle)
	assert.Equal(t, "http://localhost:4566", *s3Client.Options().BaseEndpoint)

	assert.Nil(t, NewSQS(cfg, "").Options().BaseEndpoint)
}
