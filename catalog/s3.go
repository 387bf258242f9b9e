package catalog

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

// S3Catalog serves files from an S3 bucket below prefix.
type S3Catalog struct {
	svc    s3iface.S3API
	bucket string
	prefix string
}

// NewS3Catalog wraps an existing S3 client.
func NewS3Catalog(svc s3iface.S3API, bucket, prefix string) *S3Catalog {
	return &S3Catalog{svc: svc, bucket: bucket, prefix: prefix}
}

// NewAnonymousS3Catalog connects to a public bucket without credentials.
func NewAnonymousS3Catalog(region, bucket, prefix string) (*S3Catalog, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.AnonymousCredentials,
		Region:      aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	return NewS3Catalog(s3.New(sess), bucket, prefix), nil
}

func (c *S3Catalog) List(ctx context.Context, product string) ([]Entry, error) {
	entries := []Entry{}
	err := c.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			e, ok := ParseName(path.Base(aws.StringValue(obj.Key)))
			if !ok || !matches(e, product) {
				continue
			}
			e.Size = aws.Int64Value(obj.Size)
			entries = append(entries, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	logrus.Debugf("s3://%s/%s: %d entries", c.bucket, c.prefix, len(entries))
	sortEntries(entries)
	return entries, nil
}

func (c *S3Catalog) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if _, ok := ParseName(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	resp, err := c.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + name),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return resp.Body, nil
}
