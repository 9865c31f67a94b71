// Package awsclient narrows the AWS SDK's S3 client down to the
// interface this module needs, the same way gurre-ddb-pitr's aws package
// wraps the SDK client behind a small interface for testability. IAM and
// DynamoDB are dropped here — see DESIGN.md — since no component in
// this spec writes to either.
package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of the S3 API the pfs.S3 and index/filemap S3
// stores need: byte-range reads (via GetObjectInput.Range), whole-object
// writes, and metadata lookups.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Compile-time check that the concrete SDK client satisfies S3Client.
var _ S3Client = (*s3.Client)(nil)
