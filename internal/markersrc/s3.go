// internal/markersrc/s3.go
package markersrc

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/xerrors"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads markers from one bucket; the marker path is the object key.
// Backup jobs that ship off-host drop their marker next to the archive.
type S3 struct {
	client S3API
	bucket string
}

func NewS3(client S3API, bucket string) (*S3, error) {
	if client == nil {
		return nil, xerrors.New("s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, xerrors.New("s3 bucket is required")
	}
	return &S3{client: client, bucket: bucket}, nil
}

func (s *S3) Bucket() string { return s.bucket }

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, xerrors.Wrapf(err, "head s3://%s/%s", s.bucket, key)
}

func (s *S3) ReadText(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get s3://%s/%s", s.bucket, key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, MaxMarkerBytes))
	if err != nil {
		return "", xerrors.Wrapf(err, "read s3://%s/%s", s.bucket, key)
	}
	return string(b), nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
