package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/sitetree/blobstore"
	"github.com/hupe1980/sitetree/blobstore/minio"
	"github.com/hupe1980/sitetree/blobstore/s3"
)

var errNoStore = errors.New("no store configured, use --store or SITETREE_STORE")

// openStore resolves a store URL:
//
//	file:///var/lib/sitetree        local directory (plain paths work too)
//	mem://                          in-memory, for dry runs
//	s3://bucket/prefix?region=eu-west-1&endpoint=...&ddb_table=commits
//	minio://host:9000/bucket/prefix?secure=true
//
// MinIO credentials come from the URL user info or MINIO_ACCESS_KEY and
// MINIO_SECRET_KEY.
func openStore(ctx context.Context, raw string) (blobstore.BlobStore, error) {
	if raw == "" {
		return nil, errNoStore
	}
	if !strings.Contains(raw, "://") {
		return localStore(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	q := u.Query()

	switch u.Scheme {
	case "file":
		return localStore(filepath.Join(u.Host, u.Path))
	case "mem":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		return s3Store(ctx, u.Host, strings.Trim(u.Path, "/"), q)
	case "minio":
		return minioStore(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

func localStore(dir string) (blobstore.BlobStore, error) {
	if dir == "" {
		return nil, errors.New("file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return blobstore.NewLocalStore(dir), nil
}

func s3Store(ctx context.Context, bucket, prefix string, q url.Values) (blobstore.BlobStore, error) {
	var opts []s3.Option
	if region := q.Get("region"); region != "" {
		opts = append(opts, s3.WithRegion(region))
	}
	if endpoint := q.Get("endpoint"); endpoint != "" {
		opts = append(opts, s3.WithEndpoint(endpoint))
	}
	opts = append(opts, s3.WithPrefix(prefix))

	store, err := s3.New(ctx, bucket, opts...)
	if err != nil {
		return nil, err
	}

	table := q.Get("ddb_table")
	if table == "" {
		return store, nil
	}
	return s3.NewDDBCommitStoreFromConfig(ctx, store, table, opts...)
}

func minioStore(ctx context.Context, u *url.URL) (blobstore.BlobStore, error) {
	bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")

	cfg := minio.Config{
		Endpoint:  u.Host,
		Bucket:    bucket,
		Prefix:    prefix,
		Region:    u.Query().Get("region"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
	}
	if u.User != nil {
		cfg.AccessKey = u.User.Username()
		cfg.SecretKey, _ = u.User.Password()
	}
	if s := u.Query().Get("secure"); s != "" {
		secure, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("minio secure: %w", err)
		}
		cfg.Secure = secure
	}
	return minio.Dial(ctx, cfg)
}
