package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
)

var ErrNotConfigured = errors.New("publish target is not configured")

const contentType = "text/html; charset=utf-8"

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Key       string
	AccessKey string
	SecretKey string
	PublicURL string
}

func (c Config) Configured() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// ObjectAPI is the part of the S3 client the publisher uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Publisher struct {
	cfg    Config
	client ObjectAPI
}

// New builds a publisher for an S3-compatible bucket (Cloudflare R2 style endpoint).
// An unconfigured target yields a publisher whose calls return ErrNotConfigured.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.Key == "" {
		cfg.Key = "index.html"
	}
	if !cfg.Configured() {
		return &Publisher{cfg: cfg}, nil
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &Publisher{cfg: cfg, client: client}, nil
}

// NewWithClient is used with a preconfigured or fake client.
func NewWithClient(cfg Config, client ObjectAPI) *Publisher {
	if cfg.Key == "" {
		cfg.Key = "index.html"
	}
	return &Publisher{cfg: cfg, client: client}
}

func (p *Publisher) Configured() bool {
	return p.client != nil
}

// Check verifies the bucket is reachable with the configured credentials.
func (p *Publisher) Check(ctx context.Context) error {
	if !p.Configured() {
		return ErrNotConfigured
	}
	_, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.cfg.Bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("bucket check failed: %w", err)
	}
	return nil
}

// Upload puts the rendered page at path and returns where it can be found.
func (p *Publisher) Upload(ctx context.Context, fs afero.Fs, path string) (string, error) {
	if !p.Configured() {
		return "", ErrNotConfigured
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(p.cfg.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload page: %w", err)
	}
	return p.location(), nil
}

func (p *Publisher) location() string {
	if p.cfg.PublicURL != "" {
		return strings.TrimRight(p.cfg.PublicURL, "/") + "/" + p.cfg.Key
	}
	return "s3://" + p.cfg.Bucket + "/" + p.cfg.Key
}
