package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
	submissionmemory "github.com/learnweb/moodle-assignsubmission-collabora/internal/submission/memory"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
	storagebadger "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/badger"
	storagefs "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/fs"
	storagememory "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/memory"
	storages3 "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/s3"
)

// CreateStorageBackend materializes the backend selected by the Type field,
// decoding the matching type-specific options map.
func CreateStorageBackend(ctx context.Context, cfg *StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "memory":
		return storagememory.NewMemoryBackend(), nil
	case "filesystem":
		return createFilesystemBackend(ctx, cfg.Filesystem)
	case "badger":
		return createBadgerBackend(ctx, cfg.Badger)
	case "s3":
		return createS3Backend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend type: %q", cfg.Type)
	}
}

func createFilesystemBackend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type FilesystemOptions struct {
		Path string `mapstructure:"path"`
	}

	var opts FilesystemOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem backend options: %w", err)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("filesystem backend: path is required")
	}

	backend, err := storagefs.NewFSBackend(ctx, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem backend: %w", err)
	}
	return backend, nil
}

func createBadgerBackend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type BadgerOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts BadgerOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger backend options: %w", err)
	}

	if opts.Path == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger backend: path is required")
	}

	backend, err := storagebadger.NewBadgerBackend(ctx, storagebadger.BadgerBackendConfig{
		Path:     opts.Path,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger backend: %w", err)
	}
	return backend, nil
}

func createS3Backend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var opts S3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backend options: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 backend: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 backend: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint supports MinIO and Localstack setups.
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	backend, err := storages3.NewS3Backend(ctx, storages3.S3BackendConfig{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}

	logger.Info("S3 backend initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)
	return backend, nil
}

// BuildRegistry seeds a submission registry from configuration.
func BuildRegistry(cfg *Config) *submissionmemory.Registry {
	registry := submissionmemory.NewRegistry()

	for _, u := range cfg.Users {
		registry.AddUser(submissionmemory.User{
			ID:   submission.PrincipalID(u.ID),
			Name: u.Name,
			Role: roleFromString(u.Role),
		})
	}

	for _, g := range cfg.Groups {
		members := make([]submission.PrincipalID, len(g.Members))
		for i, m := range g.Members {
			members[i] = submission.PrincipalID(m)
		}
		registry.AddGroup(submission.GroupID(g.ID), members...)
	}

	for _, s := range cfg.Submissions {
		registry.AddSubmission(submissionmemory.Submission{
			ID:         s.ID,
			UserID:     submission.PrincipalID(s.UserID),
			GroupID:    submission.GroupID(s.GroupID),
			Locked:     s.Locked,
			CutoffDate: s.CutoffDate,
		})
	}

	return registry
}

func roleFromString(role string) submissionmemory.Role {
	switch role {
	case "admin":
		return submissionmemory.RoleAdmin
	case "grader":
		return submissionmemory.RoleGrader
	default:
		return submissionmemory.RoleStudent
	}
}
