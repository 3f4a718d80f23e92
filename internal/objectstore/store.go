// Copyright 2025 James Ross
// Package objectstore wraps the S3-compatible object store holding
// data-object byte content (as opposed to catalog metadata), used by the
// get/put/write primitives (spec §4.4).
package objectstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
	"github.com/jamesross/dgrid-batch/internal/config"
)

// Store uploads and downloads data-object bytes keyed by the resolved
// absolute collection/data-object path.
type Store struct {
	bucket     string
	s3         *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

// New builds a Store from the object-store section of cfg.
func New(cfg *config.Config) (*Store, error) {
	awsCfg := aws.NewConfig().
		WithRegion(cfg.ObjectStore.Region).
		WithS3ForcePathStyle(cfg.ObjectStore.UsePathStyle)
	if cfg.ObjectStore.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(
			cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, bferrors.NewConnectionError(cfg.ObjectStore.Endpoint, 0, err)
	}

	return &Store{
		bucket:     cfg.ObjectStore.Bucket,
		s3:         s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

// key maps an absolute collection/data-object path to an object key.
func key(collection, dataObject string) string {
	if collection == "" {
		return dataObject
	}
	return collection + "/" + dataObject
}

// Put uploads the contents of r as collection/dataObject.
func (s *Store) Put(ctx context.Context, collection, dataObject string, r io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(collection, dataObject)),
		Body:   r,
	})
	if err != nil {
		return bferrors.NewOperationError("put", key(collection, dataObject), err)
	}
	return nil
}

// PutSingleStream uploads collection/dataObject as a single PutObject call
// instead of the concurrent multipart transfer s3manager.Uploader.Upload uses.
// This is the single-server fallback (SINGLE_SERVER): one connection, one
// request, no parallel part uploads, mirroring the source protocol's
// single-threaded transfer mode. r must support Seek, since S3 signs the
// request body.
func (s *Store) PutSingleStream(ctx context.Context, collection, dataObject string, r io.ReadSeeker) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(collection, dataObject)),
		Body:   r,
	})
	if err != nil {
		return bferrors.NewOperationError("put", key(collection, dataObject), err)
	}
	return nil
}

// Get downloads collection/dataObject's bytes in full, bounded by bufferSize.
func (s *Store) Get(ctx context.Context, collection, dataObject string, bufferSize int64) ([]byte, error) {
	buf := aws.NewWriteAtBuffer(make([]byte, 0, bufferSize))
	n, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(collection, dataObject)),
	})
	if err != nil {
		return nil, bferrors.NewOperationError("get", key(collection, dataObject), err)
	}
	if n > bufferSize {
		return nil, bferrors.NewValidationError("buffer_size", bufferSize, "object exceeds configured buffer_size")
	}
	return buf.Bytes(), nil
}

// Move renames an object server-side via copy+delete (S3 has no native
// rename).
func (s *Store) Move(ctx context.Context, srcColl, srcObj, dstColl, dstObj string) error {
	srcKey := key(srcColl, srcObj)
	dstKey := key(dstColl, dstObj)
	_, err := s.s3.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return bferrors.NewOperationError("move", srcKey, err)
	}
	return s.Remove(ctx, srcColl, srcObj)
}

// Remove deletes collection/dataObject.
func (s *Store) Remove(ctx context.Context, collection, dataObject string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(collection, dataObject)),
	})
	if err != nil {
		return bferrors.NewOperationError("remove", key(collection, dataObject), err)
	}
	return nil
}

// Stat returns collection/dataObject's size and last-modified time, for the
// PRINT_SIZE/PRINT_TIMESTAMP list-path flags.
func (s *Store) Stat(ctx context.Context, collection, dataObject string) (int64, time.Time, error) {
	out, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(collection, dataObject)),
	})
	if err != nil {
		return 0, time.Time{}, bferrors.NewOperationError("stat", key(collection, dataObject), err)
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	var modTime time.Time
	if out.LastModified != nil {
		modTime = *out.LastModified
	}
	return size, modTime, nil
}

// Checksum returns the backend's ETag for collection/dataObject, used as
// the data object's checksum record.
func (s *Store) Checksum(ctx context.Context, collection, dataObject string) (string, error) {
	out, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(collection, dataObject)),
	})
	if err != nil {
		return "", bferrors.NewOperationError("checksum", key(collection, dataObject), err)
	}
	if out.ETag == nil {
		return "", nil
	}
	return string(bytes.Trim([]byte(*out.ETag), `"`)), nil
}
