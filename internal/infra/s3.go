package infra

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds an S3 client from static credentials. A custom endpoint
// switches to path-style addressing so MinIO and R2 work unchanged.
func NewS3Client(cfg *Config) (*s3.Client, error) {
	if !cfg.S3Enabled() {
		return nil, errors.New("s3: bucket not configured")
	}
	if cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
		return nil, errors.New("s3: access key id and secret are required")
	}
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Source:          "neomentor-env",
		}, nil
	})
	opts := s3.Options{
		Region:      cfg.S3Region,
		Credentials: aws.NewCredentialsCache(creds),
	}
	if endpoint := strings.TrimSpace(cfg.S3Endpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}
