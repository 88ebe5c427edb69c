package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/server/config"
)

// S3API is the part of *s3.Client the storage service uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// StorageService keeps uploaded files in S3-compatible object storage.
// Bucket "avatars" maps to the S3 bucket "<prefix>avatars"; buckets are
// created on first upload.
type StorageService struct {
	client S3API
	prefix string
	logger logging.Logger
}

// NewStorageService connects to the S3 endpoint of cfg with static
// credentials and path-style addressing, as MinIO expects.
func NewStorageService(ctx context.Context, cfg *config.Config, logger logging.Logger) (*StorageService, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return NewStorageServiceWithClient(client, cfg.S3BucketPrefix, logger), nil
}

func NewStorageServiceWithClient(client S3API, prefix string, logger logging.Logger) *StorageService {
	return &StorageService{client: client, prefix: prefix, logger: logger.With("module", "storage_service")}
}

// Upload stores data at bucket/path. Without opts.Upsert the write is
// conditional and fails with common.ErrAlreadyExists if the object exists.
func (s *StorageService) Upload(ctx context.Context, bucket, path string, data []byte, opts models.UploadOptions) (*models.UploadResult, error) {
	path = strings.TrimPrefix(path, "/")
	if bucket == "" || path == "" {
		return nil, fmt.Errorf("%w: bucket and path are required", common.ErrInvalidQuery)
	}

	put := func() error {
		in := &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket(bucket)),
			Key:           aws.String(path),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		}
		if opts.ContentType != "" {
			in.ContentType = aws.String(opts.ContentType)
		}
		if cc := cacheControl(opts.CacheControl); cc != "" {
			in.CacheControl = aws.String(cc)
		}
		if !opts.Upsert {
			in.IfNoneMatch = aws.String("*")
		}
		_, err := s.client.PutObject(ctx, in)
		return err
	}

	err := put()
	if isNoSuchBucket(err) {
		if cerr := s.createBucket(ctx, bucket); cerr != nil {
			return nil, cerr
		}
		err = put()
	}
	if err != nil {
		if isConflict(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, path, common.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%w: upload %s/%s: %w", common.ErrUnavailable, bucket, path, err)
	}
	return &models.UploadResult{Bucket: bucket, Path: path}, nil
}

// Remove deletes paths from bucket. Missing objects and buckets are ignored.
func (s *StorageService) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(strings.TrimPrefix(p, "/"))})
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket(bucket)),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		if isNoSuchBucket(err) {
			return nil
		}
		return fmt.Errorf("%w: remove from %s: %w", common.ErrUnavailable, bucket, err)
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("%w: remove %s/%s: %s", common.ErrUnavailable, bucket, aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return nil
}

// List returns the direct children of folder sorted by name. Sub-folders
// are listed once with an empty ID.
func (s *StorageService) List(ctx context.Context, bucket, folder string) ([]models.FileObject, error) {
	prefix := strings.Trim(folder, "/")
	if prefix != "" {
		prefix += "/"
	}

	out := make([]models.FileObject, 0)
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket(bucket)),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			if isNoSuchBucket(err) {
				return out, nil
			}
			return nil, fmt.Errorf("%w: list %s: %w", common.ErrUnavailable, bucket, err)
		}
		for _, p := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), prefix), "/")
			out = append(out, models.FileObject{Name: name})
		}
		for _, o := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(o.Key), prefix)
			if name == "" {
				continue
			}
			out = append(out, models.FileObject{
				Name:      name,
				ID:        strings.Trim(aws.ToString(o.ETag), `"`),
				Size:      aws.ToInt64(o.Size),
				UpdatedAt: aws.ToTime(o.LastModified),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *StorageService) bucket(name string) string {
	return s.prefix + name
}

func (s *StorageService) createBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket(bucket))})
	if err != nil && !isBucketOwned(err) {
		return fmt.Errorf("%w: create bucket %s: %w", common.ErrUnavailable, bucket, err)
	}
	s.logger.Info(ctx, "bucket created", "bucket", s.bucket(bucket))
	return nil
}

// cacheControl turns a bare number of seconds into a max-age directive.
func cacheControl(v string) string {
	if v == "" {
		return ""
	}
	if _, err := strconv.Atoi(v); err == nil {
		return "max-age=" + v
	}
	return v
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	var nsb *types.NoSuchBucket
	return errors.As(err, &nsb) || apiErrorCode(err) == "NoSuchBucket"
}

func isBucketOwned(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	return errors.As(err, &owned) || apiErrorCode(err) == "BucketAlreadyOwnedByYou"
}

func isConflict(err error) bool {
	switch apiErrorCode(err) {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
