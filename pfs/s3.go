package pfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/parallaxfs/ckptfetch/awsclient"
	"github.com/parallaxfs/ckptfetch/errkind"
)

// S3 implements Dir over an S3 bucket/prefix, the teacher's own
// checkpoint.S3Store pattern generalized to a whole directory tree.
// Symlinks have no native S3 equivalent, so Symlink/Readlink store and
// read back a tiny pointer object instead.
type S3 struct {
	client awsclient.S3Client
	bucket string
	prefix string
}

// NewS3 creates an S3-backed Dir from a client and an "s3://bucket/prefix"
// root URI.
func NewS3(client awsclient.S3Client, rootURI string) (*S3, error) {
	u, err := url.Parse(rootURI)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 root uri: %v: %w", err, errkind.IO)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("root uri must use s3 scheme, got %q: %w", u.Scheme, errkind.IO)
	}
	return &S3{
		client: client,
		bucket: u.Host,
		prefix: strings.Trim(u.Path, "/"),
	}, nil
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// isNotFound recognizes S3's handful of "object doesn't exist" error
// shapes via smithy's generic API error interface, generalizing the
// teacher's two hardcoded errors.As(NoSuchKey)/errors.As(NotFound) checks
// into one classification usable from every method below.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}

// Open implements Dir.
func (s *S3) Open(ctx context.Context, name string) (ReadCloser, error) {
	key := s.key(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("get %s: %v: %w", name, err, errkind.IO)
	}
	return out.Body, nil
}

// OpenRange implements RangeReader using S3's Range request header.
func (s *S3) OpenRange(ctx context.Context, name string, offset, length uint64) (ReadCloser, error) {
	key := s.key(name)
	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key, Range: &rng})
	if err != nil {
		return nil, fmt.Errorf("get %s range %s: %v: %w", name, rng, err, errkind.IO)
	}
	return out.Body, nil
}

// Create implements Dir. S3 has no streaming PutObject in the v2 SDK
// without a pre-known body, so writes are buffered in memory before
// being flushed on Close: the whole object, including any fetched data
// file written to an S3-backed cache directory, is held in memory until
// Close.
func (s *S3) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, s: s, name: name}, nil
}

type s3Writer struct {
	ctx  context.Context
	s    *S3
	name string
	buf  bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *s3Writer) Close() error {
	key := w.s.key(w.name)
	_, err := w.s.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: &w.s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put %s: %v: %w", w.name, err, errkind.IO)
	}
	return nil
}

// Stat implements Dir.
func (s *S3) Stat(ctx context.Context, name string) (uint64, error) {
	key := s.key(name)
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return 0, fmt.Errorf("head %s: %v: %w", name, err, errkind.IO)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("head %s: no content-length: %w", name, errkind.IO)
	}
	return uint64(*out.ContentLength), nil
}

// symlinkSuffix names the pointer object that emulates a POSIX symlink.
const symlinkSuffix = ".symlink"

// Symlink implements Dir by writing a small pointer object.
func (s *S3) Symlink(ctx context.Context, target, name string) error {
	key := s.key(name + symlinkSuffix)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   strings.NewReader(target),
	})
	if err != nil {
		return fmt.Errorf("symlink %s -> %s: %v: %w", name, target, err, errkind.IO)
	}
	return nil
}

// Readlink implements Dir.
func (s *S3) Readlink(ctx context.Context, name string) (string, error) {
	key := s.key(name + symlinkSuffix)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("readlink %s: %v: %w", name, err, errkind.IO)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("readlink %s: %v: %w", name, err, errkind.IO)
	}
	return string(data), nil
}

// Remove implements Dir.
func (s *S3) Remove(ctx context.Context, name string) error {
	key := s.key(name)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return fmt.Errorf("remove %s: %v: %w", name, err, errkind.IO)
	}
	return nil
}

// RemoveAll implements Dir by listing and deleting every object under the
// given prefix.
func (s *S3) RemoveAll(ctx context.Context, name string) error {
	prefix := s.key(name)
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("list %s: %v: %w", name, err, errkind.IO)
		}
		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err != nil {
				return fmt.Errorf("delete %s: %v: %w", *obj.Key, err, errkind.IO)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return nil
}
