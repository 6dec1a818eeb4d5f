//go:build integration
// +build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
	storagetesting "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/testing"
)

// TestS3Backend_Integration runs the backend conformance suite against a
// real S3-compatible service (Localstack or MinIO).
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT set)
//   - Run with: go test -tags=integration ./pkg/storage/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Backend_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = true // Required for Localstack
	})

	bucketName := "collabora-wopi-test-bucket"
	if _, err := client.CreateBucket(ctx, &awss3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	// Each subtest gets its own key prefix so suites don't collide.
	counter := 0
	suite := &storagetesting.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			counter++
			backend, err := NewS3Backend(ctx, S3BackendConfig{
				Client:    client,
				Bucket:    bucketName,
				KeyPrefix: fmt.Sprintf("suite-%d/", counter),
			})
			if err != nil {
				t.Fatalf("Failed to create S3Backend: %v", err)
			}
			return backend
		},
	}
	suite.Run(t)
}
