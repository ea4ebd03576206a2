package integrationtests

import (
	"context"
	"testing"

	"async-inference/internal/awsconfig"
	"async-inference/internal/s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

const (
	minioUsername = "admin"
	minioPassword = "password"
	bucketName    = "test-bucket"
)

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	minioContainer, err := minio.Run(
		ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")

	t.Cleanup(func() {
		err := minioContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate MinIO container")
	})

	connStr, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO connection string")

	return "http://" + connStr
}

func setupS3Client(t *testing.T, ctx context.Context) *s3.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}

	endpoint := setupMinioContainer(t, ctx)

	awsCfg, err := awsconfig.Load(ctx, awsconfig.Params{
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)

	raw := aws_s3.NewFromConfig(awsCfg, func(o *aws_s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	_, err = raw.CreateBucket(ctx, &aws_s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	require.NoError(t, err)

	return s3.NewS3Client(awsCfg, s3.Config{S3EndpointURL: endpoint, DefaultBucket: bucketName})
}
