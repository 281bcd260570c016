// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/arnevogt/tiffio"
)

// S3Object is a read-only backend over an object in S3-compatible
// storage. Every view is one ranged GET, which is how cloud-optimized
// TIFFs are meant to be consumed: header and IFDs first, then only
// the tiles a caller actually touches.
type S3Object struct {
	obj  io.ReaderAt
	size int64
}

// NewS3Object opens bucket/key on the given client. The object handle
// performs ranged reads; Stat fetches the size once up front.
func NewS3Object(ctx context.Context, client *minio.Client, bucket, key string) (*S3Object, error) {
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, "get object")
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, tiffio.WrapErr(tiffio.KindFileNotFound, err, bucket+"/"+key)
	}
	return &S3Object{obj: obj, size: info.Size}, nil
}

// NewReaderAt wraps any io.ReaderAt of known size as a read backend.
// Used by tests and by callers that already hold an object handle.
func NewReaderAt(ra io.ReaderAt, size int64) *S3Object {
	return &S3Object{obj: ra, size: size}
}

// NewS3Client builds a minio client from a JSON key file with fields
// Endpoint, Key and Secret, falling back to the S3_ENDPOINT, S3_KEY
// and S3_SECRET environment variables when keypath is empty.
func NewS3Client(keypath string) (*minio.Client, error) {
	var config struct{ Endpoint, Key, Secret string }
	if keypath != "" {
		data, err := os.ReadFile(keypath)
		if err != nil {
			return nil, tiffio.WrapErr(tiffio.KindFileNotFound, err, keypath)
		}
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, tiffio.WrapErr(tiffio.KindIOError, err, keypath)
		}
	} else {
		config.Endpoint = os.Getenv("S3_ENDPOINT")
		config.Key = os.Getenv("S3_KEY")
		config.Secret = os.Getenv("S3_SECRET")
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Key, config.Secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, tiffio.WrapErr(tiffio.KindIOError, err, "s3 client")
	}
	return client, nil
}

func (s *S3Object) Size() (int64, error) { return s.size, nil }
func (s *S3Object) MustAllocate() bool   { return true }

func (s *S3Object) ReadAt(offset, size int64) (ReadView, error) {
	if offset < 0 || offset >= s.size {
		return nil, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte object", s.size)
	}
	if offset+size > s.size {
		size = s.size - offset
	}
	buf := make([]byte, size)
	if _, err := s.obj.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, tiffio.WrapErr(tiffio.KindReadError, err, "ranged read")
	}
	return ownedView(buf), nil
}

func (s *S3Object) ReadInto(dst []byte, offset int64) (int, error) {
	if offset < 0 || offset >= s.size {
		return 0, tiffio.ErrfAt(tiffio.KindOutOfBounds, offset, "read past end of %d-byte object", s.size)
	}
	if max := s.size - offset; int64(len(dst)) > max {
		dst = dst[:max]
	}
	n, err := s.obj.ReadAt(dst, offset)
	if err != nil && err != io.EOF {
		return n, tiffio.WrapErr(tiffio.KindReadError, err, "ranged read")
	}
	return n, nil
}
