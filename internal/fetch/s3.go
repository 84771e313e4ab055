package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"grab-go/internal/config"
	"grab-go/internal/grab"
)

// S3Fetcher downloads the policy object from an S3-compatible bucket.
type S3Fetcher struct {
	rawURL     string
	bucket     string
	key        string
	downloader *manager.Downloader
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing s3 url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 url: %s", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: %s", rawURL)
	}
	return u.Host, key, nil
}

// NewS3Fetcher loads AWS configuration and creates a fetcher for rawURL.
// Static credentials from cfg take precedence over the default chain.
func NewS3Fetcher(ctx context.Context, rawURL string, cfg config.S3Config) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3FetcherWithClient(rawURL, client)
}

// NewS3FetcherWithClient creates a fetcher that downloads through client.
func NewS3FetcherWithClient(rawURL string, client manager.DownloadAPIClient) (*S3Fetcher, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	return &S3Fetcher{
		rawURL: rawURL,
		bucket: bucket,
		key:    key,
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.Concurrency = 1
		}),
	}, nil
}

// Fetch downloads the policy object into memory.
func (f *S3Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	n, err := f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &grab.FetchError{Reason: grab.ReasonHTTPStatus, StatusCode: 404, Err: err}
		}
		return nil, &grab.FetchError{Reason: grab.ReasonNetwork, Err: err}
	}
	if n > MaxPolicySize {
		return nil, &grab.FetchError{
			Reason: grab.ReasonInvalidPolicy,
			Err:    fmt.Errorf("policy object exceeds %d bytes", MaxPolicySize),
		}
	}
	return buf.Bytes(), nil
}

func (f *S3Fetcher) URL() string { return f.rawURL }

var _ grab.PolicyFetcher = (*S3Fetcher)(nil)
