// Package export uploads finished result files to S3-compatible storage.
package export

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	platformconfig "devicelink/internal/platform/config"
	"devicelink/internal/tabular"
	"devicelink/pkg/requestcontext"
)

// PutObjectAPI is the subset of *s3.Client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Location is a parsed s3://bucket/key destination.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseLocation accepts s3://bucket/key. The key must be non-empty.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse upload location: %w", err)
	}
	if u.Scheme != "s3" {
		return Location{}, fmt.Errorf("upload location %q must use the s3:// scheme", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Location{}, fmt.Errorf("upload location %q must name a bucket and a key", raw)
	}
	return Location{Bucket: u.Host, Key: key}, nil
}

type Uploader struct {
	client PutObjectAPI
}

// NewS3 builds an uploader from the default AWS credential chain. Endpoint
// and PathStyle support MinIO and other S3-compatible stores.
func NewS3(ctx context.Context, cfg platformconfig.Upload) (*Uploader, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewUploader(client), nil
}

func NewUploader(client PutObjectAPI) *Uploader {
	return &Uploader{client: client}
}

// UploadFile puts the file at path to loc. The run id, when present in ctx,
// is stored as object metadata.
func (u *Uploader) UploadFile(ctx context.Context, loc Location, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(loc.Bucket),
		Key:           aws.String(loc.Key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(path)),
	}
	if runID := requestcontext.RunID(ctx); runID != "" {
		input.Metadata = map[string]string{"run-id": runID}
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", loc, err)
	}
	return nil
}

func contentType(path string) string {
	if tabular.FormatOf(path) == tabular.FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
