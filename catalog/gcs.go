package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSCatalog serves files from a Google Cloud Storage bucket below prefix.
type GCSCatalog struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCSCatalog wraps an existing storage client.
func NewGCSCatalog(client *storage.Client, bucket, prefix string) *GCSCatalog {
	return &GCSCatalog{bucket: client.Bucket(bucket), name: bucket, prefix: prefix}
}

// NewGCSClient creates a storage client, from a service account file when one is given.
func NewGCSClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	if credentialsFile == "" {
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
}

func (c *GCSCatalog) List(ctx context.Context, product string) ([]Entry, error) {
	entries := []Entry{}

	it := c.bucket.Objects(ctx, &storage.Query{Prefix: c.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		e, ok := ParseName(path.Base(attrs.Name))
		if !ok || !matches(e, product) {
			continue
		}
		e.Size = attrs.Size
		entries = append(entries, e)
	}

	logrus.Debugf("gs://%s/%s: %d entries", c.name, c.prefix, len(entries))
	sortEntries(entries)
	return entries, nil
}

func (c *GCSCatalog) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if _, ok := ParseName(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	r, err := c.bucket.Object(c.prefix + name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return r, nil
}
