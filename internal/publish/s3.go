package publish

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mex-go/internal/config"
	"mex-go/internal/mex"
)

// S3Publisher uploads artifacts to an S3 bucket under a key prefix.
// Uploads go through the transfer manager, which handles multipart for
// large archives.
type S3Publisher struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Publisher builds the client from the publish configuration. A
// configured access key pair is used as static credentials; otherwise
// the default AWS credential chain applies.
func NewS3Publisher(cfg config.PublishConfig) (*S3Publisher, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 publisher requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Publisher{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

// ValidateSetup checks that the bucket is reachable with the configured
// credentials before any artifact moves.
func (p *S3Publisher) ValidateSetup() error {
	_, err := p.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(p.bucket),
	})
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", p.bucket, err)
	}
	return nil
}

// Put uploads the artifact under prefix/key.
func (p *S3Publisher) Put(key string, r io.Reader, size int64) error {
	fullKey := key
	if p.prefix != "" {
		fullKey = path.Join(p.prefix, key)
	}

	_, err := p.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(fullKey),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", fullKey, err)
	}
	return nil
}

// Compile-time check that S3Publisher implements mex.Publisher
var _ mex.Publisher = (*S3Publisher)(nil)
