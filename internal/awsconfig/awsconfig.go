package awsconfig

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

type Params struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func load(ctx context.Context, region string, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{}

	if region != "" {
		opts = append(opts, aws_config.WithRegion(region))
	}

	if creds != nil {
		opts = append(opts, aws_config.WithCredentialsProvider(creds))
	}

	return aws_config.LoadDefaultConfig(ctx, opts...)
}

// Load resolves an aws.Config shared by the S3 and SNS clients. Static keys win
// over the default credential chain. If the chain yields nothing we fall back
// to anonymous credentials so public buckets stay readable.
func Load(ctx context.Context, params Params) (aws.Config, error) {
	var creds aws.CredentialsProvider = nil
	if params.AccessKeyID != "" && params.SecretAccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, "")
	}

	cfg, err := load(ctx, params.Region, creds)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		slog.Warn("no aws credentials found, using anonymous credentials", "error", err)
		cfg, err = load(ctx, params.Region, aws.AnonymousCredentials{})
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load aws config with anonymous credentials: %w", err)
		}
	}

	return cfg, nil
}
