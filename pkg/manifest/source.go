package manifest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/scrollkit/internal/errors"
)

// MaxManifestSize bounds how much of a manifest source is read.
const MaxManifestSize = 4 << 20

// Source loads a manifest from somewhere.
type Source interface {
	// Load fetches and parses the manifest.
	Load(ctx context.Context) (*Manifest, error)

	// String names the source in logs and error locations.
	String() string
}

// FileSource reads a manifest from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource returns a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load implements Source.
func (f *FileSource) Load(ctx context.Context) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.New("M204").
			Wrap(err).
			WithDetail(fmt.Sprintf("Could not open %s.", f.Path))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxManifestSize))
	if err != nil {
		return nil, errors.New("M204").Wrap(err)
	}
	return Parse(data, f.Path)
}

func (f *FileSource) String() string { return f.Path }

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a manifest object from S3.
type S3Source struct {
	client S3API
	bucket string
	key    string
}

// NewS3Source returns a source reading bucket/key through client.
func NewS3Source(client S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Load implements Source.
func (s *S3Source) Load(ctx context.Context) (*Manifest, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, errors.New("M204").
			Wrap(err).
			WithDetail(fmt.Sprintf("GetObject %s failed.", s.String()))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxManifestSize))
	if err != nil {
		return nil, errors.New("M204").Wrap(err)
	}
	return Parse(data, s.String())
}

func (s *S3Source) String() string { return "s3://" + s.bucket + "/" + s.key }

// OpenSource resolves a manifest location. "s3://bucket/key" loads the
// default AWS configuration for region (empty uses the environment);
// anything else is a file path.
func OpenSource(ctx context.Context, location, region string) (Source, error) {
	if !strings.HasPrefix(location, "s3://") {
		return NewFileSource(filepath.Clean(location)), nil
	}

	u, err := url.Parse(location)
	if err != nil || u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return nil, errors.New("M204").
			WithDetail(fmt.Sprintf("%q is not a valid s3://bucket/key location.", location))
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("M204").Wrap(err)
	}
	return NewS3Source(s3.NewFromConfig(cfg), u.Host, strings.TrimPrefix(u.Path, "/")), nil
}
