package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/sitetree/blobstore"
)

// UploadConfig tunes multipart uploads.
type UploadConfig struct {
	// PartSize is the minimum multipart part size. Zero keeps the SDK default.
	PartSize int64

	// Concurrency is the number of parts uploaded in parallel.
	Concurrency int

	// EnableChecksum asks S3 to verify a CRC32C of every object.
	EnableChecksum bool

	// LeavePartsOnError keeps uploaded parts when an upload fails.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns 8 MiB parts, 5 concurrent uploads and CRC32C
// verification.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{PartSize: 8 << 20, Concurrency: 5, EnableChecksum: true}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// computeCRC32C encodes the CRC32C of data the way S3 expects it: four
// big-endian bytes in base64.
func computeCRC32C(data []byte) string {
	return base64.StdEncoding.EncodeToString(binary.BigEndian.AppendUint32(nil, crc32.Checksum(data, castagnoli)))
}

func putInput(bucket, key string, data []byte, checksum bool) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(blobstore.ContentType(key)),
	}
	if checksum {
		in.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}
	return in
}

// uploadWriter streams writes into a background upload through a pipe.
// The object is committed when Close returns nil.
type uploadWriter struct {
	pw   *io.PipeWriter
	done chan error

	once sync.Once
	err  error
}

func newUploadWriter(ctx context.Context, uploader *manager.Uploader, bucket, key string, checksum bool) *uploadWriter {
	pr, pw := io.Pipe()
	w := &uploadWriter{pw: pw, done: make(chan error, 1)}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        pr,
		ContentType: aws.String(blobstore.ContentType(key)),
	}
	if checksum {
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := uploader.Upload(ctx, in)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close ends the stream and waits for the upload. Later calls return the
// first result.
func (w *uploadWriter) Close() error {
	w.once.Do(func() {
		_ = w.pw.Close()
		w.err = <-w.done
	})
	return w.err
}

// Abort fails the stream, so the uploader discards the object and any parts
// unless LeavePartsOnError is set.
func (w *uploadWriter) Abort() error {
	w.once.Do(func() {
		_ = w.pw.CloseWithError(context.Canceled)
		<-w.done
		w.err = context.Canceled
	})
	return nil
}

// Sync is a no-op. Data is committed on Close.
func (w *uploadWriter) Sync() error { return nil }
