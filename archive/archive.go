// Package archive keeps the analysed images and their reports in an S3
// compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/bububa/meal-agents/meal"
)

// API is the part of *s3.Client the archive uses
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

// ClientConfig describes how to reach the bucket
type ClientConfig struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewClient returns an S3 client. Static credentials are used when given,
// anonymous access otherwise.
func NewClient(cfg ClientConfig) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		accessKey, secretKey := cfg.AccessKey, cfg.SecretKey
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey, Source: "meal-agents"}, nil
		}))
	}
	return s3.New(opts)
}

type Option func(*Archive)

func WithBucket(bucket string) Option {
	return func(a *Archive) {
		a.bucket = bucket
	}
}

// WithPrefix prepends prefix to every object key
func WithPrefix(prefix string) Option {
	return func(a *Archive) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

func WithClient(clt API) Option {
	return func(a *Archive) {
		a.client = clt
	}
}

// Archive writes objects to a single bucket
type Archive struct {
	client API
	bucket string
	prefix string
}

// New returns an Archive. A bucket and a client are required.
func New(opts ...Option) (*Archive, error) {
	ret := new(Archive)
	for _, opt := range opts {
		opt(ret)
	}
	// the gs:// scheme of a hosting bucket is not part of the name
	ret.bucket = strings.TrimPrefix(strings.TrimPrefix(ret.bucket, "s3://"), "gs://")
	if ret.bucket == "" {
		return nil, errors.New("archive bucket not set")
	}
	if ret.client == nil {
		return nil, errors.New("archive client not set")
	}
	return ret, nil
}

func (a *Archive) Bucket() string {
	return a.bucket
}

func (a *Archive) key(parts ...string) string {
	if a.prefix != "" {
		parts = append([]string{a.prefix}, parts...)
	}
	return path.Join(parts...)
}

// PutImage stores an image under a new random key and returns the key
func (a *Archive) PutImage(ctx context.Context, img meal.MealImage) (string, error) {
	key := a.key("images", uuid.NewString()+img.Extension())
	if err := a.put(ctx, key, img.MimeType, img.Data); err != nil {
		return "", err
	}
	return key, nil
}

// PutReport stores the report of a run as JSON and returns the key
func (a *Archive) PutReport(ctx context.Context, runID string, report *meal.MealReport) (string, error) {
	bs, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	key := a.ReportKey(runID)
	if err := a.put(ctx, key, "application/json", bs); err != nil {
		return "", err
	}
	return key, nil
}

// ReportKey returns the key PutReport stores the report of runID under
func (a *Archive) ReportKey(runID string) string {
	return a.key("reports", runID+".json")
}

// Delete removes the objects under keys. Every key is tried, the errors are
// joined.
func (a *Archive) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete object %s from S3: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Open returns the object body and content type. The caller closes the body.
func (a *Archive) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object from S3: %w", err)
	}
	return resp.Body, aws.ToString(resp.ContentType), nil
}

func (a *Archive) put(ctx context.Context, key string, contentType string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s to S3: %w", key, err)
	}
	return nil
}
