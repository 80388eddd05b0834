package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/sitetree/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blobstore.BlobStore = (*Store)(nil)

// Config describes a MinIO connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	Secure    bool
}

// Dial connects to MinIO and creates the bucket if it does not exist.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("minio: make bucket %s: %w", cfg.Bucket, err)
		}
	}

	return NewStore(client, cfg.Bucket, cfg.Prefix), nil
}

// NewStore creates a new MinIO blob store.
// rootPrefix is prepended to all keys (e.g. "partitions/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) listPrefix(prefix string) string {
	full := strings.TrimSuffix(s.prefix, "/")
	if full != "" {
		full += "/"
	}
	return full + prefix
}

func (s *Store) relative(key string) string {
	root := strings.TrimSuffix(s.prefix, "/")
	if root == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, root), "/")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open stats the object and returns a handle that reads it with ranged GETs.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("minio: stat %s: %w", key, err)
	}
	return &object{store: s, key: key, size: info.Size}, nil
}

// Put uploads data in one request with an MD5 check.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:    blobstore.ContentType(name),
		SendContentMd5: true,
	})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", key, err)
	}
	return nil
}

// Create streams into an upload of unknown size. The object appears when
// the writer is closed.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &objectWriter{pw: pw, done: make(chan error, 1)}

	opts := minio.PutObjectOptions{ContentType: blobstore.ContentType(name)}
	go func(key string) {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, opts)
		_ = pr.CloseWithError(err)
		w.done <- err
	}(s.key(name))

	return w, nil
}

// Delete removes a blob. Missing blobs are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List walks every object under the prefix and returns the names relative
// to the store root.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.listPrefix(prefix), Recursive: true}

	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, opts) {
		if info.Err != nil {
			return nil, fmt.Errorf("minio: list %s: %w", opts.Prefix, info.Err)
		}
		if name := s.relative(info.Key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// object is an open MinIO object. It holds no connection.
type object struct {
	store *Store
	key   string
	size  int64
}

func (o *object) Size() int64 { return o.size }

func (o *object) Close() error { return nil }

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	switch {
	case off < 0:
		return 0, fmt.Errorf("minio: negative offset %d", off)
	case off >= o.size:
		return 0, io.EOF
	case len(p) == 0:
		return 0, nil
	}

	last := min(off+int64(len(p)), o.size) - 1
	rc, err := o.fetch(ctx, off, last)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p[:last-off+1])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("minio: invalid range [%d, %d)", off, off+length)
	}
	if off > o.size || (off == o.size && length > 0 && off > 0) {
		return nil, io.EOF
	}
	if length == 0 || o.size == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return o.fetch(ctx, off, min(off+length, o.size)-1)
}

// fetch issues a GET for the inclusive byte range [first, last].
func (o *object) fetch(ctx context.Context, first, last int64) (*minio.Object, error) {
	var opts minio.GetObjectOptions
	if err := opts.SetRange(first, last); err != nil {
		return nil, err
	}
	obj, err := o.store.client.GetObject(ctx, o.store.bucket, o.key, opts)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, o.key)
	}
	return obj, err
}

var errAborted = errors.New("minio: upload aborted")

// objectWriter feeds a background PutObject through a pipe.
type objectWriter struct {
	pw   *io.PipeWriter
	done chan error

	once sync.Once
	err  error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close ends the stream and waits for the upload. Later calls return the
// first result.
func (w *objectWriter) Close() error {
	w.once.Do(func() {
		_ = w.pw.Close()
		w.err = <-w.done
	})
	return w.err
}

// Abort fails the stream so no object is created.
func (w *objectWriter) Abort() error {
	w.once.Do(func() {
		_ = w.pw.CloseWithError(errAborted)
		<-w.done
		w.err = errAborted
	})
	return nil
}

func (w *objectWriter) Sync() error { return nil }
