package records

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
)

// UploadFile stores data at bucket/path. Without opts.Upsert an existing
// object is kept and the call fails with common.ErrAlreadyExists inside
// common.ErrRemoteWrite.
func (s *Service) UploadFile(ctx context.Context, bucket, path string, data []byte, opts models.UploadOptions) (*models.UploadResult, error) {
	res, err := s.storage.Upload(ctx, bucket, path, data, opts)
	if err != nil {
		return nil, s.writeError(ctx, "upload", bucket, err, "path", path)
	}
	return res, nil
}

// GetPublicURL derives the object's URL. It makes no call and gives no
// guarantee that the object exists.
func (s *Service) GetPublicURL(bucket, path string) string {
	return s.storage.PublicURL(bucket, path)
}

// DeleteFile removes one or more objects.
func (s *Service) DeleteFile(ctx context.Context, bucket string, paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: no paths to delete", common.ErrInvalidQuery)
	}
	if err := s.storage.Remove(ctx, bucket, paths); err != nil {
		return s.writeError(ctx, "delete_file", bucket, err, "paths", paths)
	}
	return nil
}

// ListFiles lists folder of bucket. An empty folder is an empty, non-nil
// slice.
func (s *Service) ListFiles(ctx context.Context, bucket, folder string) ([]models.FileObject, error) {
	files, err := s.storage.List(ctx, bucket, folder)
	if err != nil {
		return nil, s.readError(ctx, "list_files", bucket, err, "folder", folder)
	}
	if files == nil {
		files = []models.FileObject{}
	}
	return files, nil
}
