package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
)

// S3Config configures the S3 backend. Endpoint and PathStyle cover
// S3-compatible stores such as R2 or MinIO.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	MaxRetries      int
	RetryBaseDelay  time.Duration
}

type s3Client interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3 stores objects in a bucket under an optional key prefix.
type S3 struct {
	cfg      S3Config
	client   s3Client
	uploader *manager.Uploader
	sleep    func(ctx context.Context, d time.Duration) error
}

// ParseS3URL splits "s3://bucket/some/prefix" into bucket and prefix.
func ParseS3URL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse %q: %v", ErrStorage, raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q is not an s3://bucket URL", ErrStorage, raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", ErrStorage, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return newS3WithClient(cfg, client), nil
}

func newS3WithClient(cfg S3Config, client s3Client) *S3 {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 300 * time.Millisecond
	}
	return &S3{
		cfg:      cfg,
		client:   client,
		uploader: manager.NewUploader(client),
		sleep:    sleepCtx,
	}
}

func (s *S3) Location() string {
	if s.cfg.Prefix == "" {
		return "s3://" + s.cfg.Bucket
	}
	return "s3://" + s.cfg.Bucket + "/" + s.cfg.Prefix
}

// EnsureDestination creates the bucket when it does not exist.
func (s *S3) EnsureDestination(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("%w: head bucket %s: %v", ErrStorage, s.cfg.Bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}
	if s.cfg.Region != "us-east-1" && s.cfg.Region != "auto" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.cfg.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, in); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("%w: create bucket %s: %v", ErrStorage, s.cfg.Bucket, err)
	}
	return nil
}

// Write uploads data, retrying with exponential backoff.
func (s *S3) Write(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	contentType := mimetype.Detect(data).String()

	attempt := 0
	for {
		attempt++
		_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err == nil {
			return nil
		}
		if attempt > s.cfg.MaxRetries {
			break
		}
		if sleepErr := s.sleep(ctx, s.backoffDelay(attempt)); sleepErr != nil {
			err = sleepErr
			break
		}
	}
	return fmt.Errorf("%w: upload %s after %d attempts: %v", ErrStorage, key, attempt, err)
}

func (s *S3) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Size(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *S3) Size(ctx context.Context, name string) (int64, error) {
	key, err := s.key(name)
	if err != nil {
		return 0, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %w: %s", ErrStorage, ErrNotFound, key)
		}
		return 0, fmt.Errorf("%w: head %s: %v", ErrStorage, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3) key(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if name == "" || clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("%w: %w: %s", ErrStorage, ErrInvalidName, name)
	}
	if s.cfg.Prefix == "" {
		return clean, nil
	}
	return s.cfg.Prefix + "/" + clean, nil
}

func (s *S3) backoffDelay(attempt int) time.Duration {
	delay := s.cfg.RetryBaseDelay << (attempt - 1)
	jitter := int64(delay) / 10
	if jitter <= 0 {
		return delay
	}
	return delay - time.Duration(jitter/2) + time.Duration(rand.Int63n(jitter))
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nk *types.NoSuchKey
	var nb *types.NoSuchBucket
	return errors.As(err, &nf) || errors.As(err, &nk) || errors.As(err, &nb)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
