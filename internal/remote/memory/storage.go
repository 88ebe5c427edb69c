package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/google/uuid"
)

type object struct {
	id           string
	data         []byte
	contentType  string
	cacheControl string
	updatedAt    time.Time
}

// Upload stores data at bucket/path. Without opts.Upsert an existing object
// is left untouched and ErrAlreadyExists is returned.
func (s *Store) Upload(ctx context.Context, bucket, path string, data []byte, opts models.UploadOptions) (*models.UploadResult, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: empty object path", common.ErrInvalidQuery)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpUpload); err != nil {
		return nil, err
	}

	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]*object)
		s.buckets[bucket] = b
	}
	prev, exists := b[path]
	if exists && !opts.Upsert {
		return nil, fmt.Errorf("%s/%s: %w", bucket, path, common.ErrAlreadyExists)
	}

	obj := &object{
		id:           uuid.NewString(),
		data:         slices.Clone(data),
		contentType:  opts.ContentType,
		cacheControl: opts.CacheControl,
		updatedAt:    s.now().UTC(),
	}
	if exists {
		obj.id = prev.id
	}
	if obj.contentType == "" {
		obj.contentType = "application/octet-stream"
	}
	b[path] = obj

	return &models.UploadResult{Bucket: bucket, Path: path}, nil
}

// PublicURL never fails and does not check that the object exists.
func (s *Store) PublicURL(bucket, path string) string {
	return remote.PublicObjectURL(s.publicURL, bucket, path)
}

// Remove deletes the given paths; missing ones are ignored.
func (s *Store) Remove(ctx context.Context, bucket string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpRemove); err != nil {
		return err
	}
	b := s.buckets[bucket]
	for _, p := range paths {
		delete(b, strings.TrimPrefix(p, "/"))
	}
	return nil
}

// List returns the direct children of folder sorted by name. Sub-folders
// appear once with an empty ID.
func (s *Store) List(ctx context.Context, bucket, folder string) ([]models.FileObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpList); err != nil {
		return nil, err
	}

	prefix := strings.Trim(folder, "/")
	if prefix != "" {
		prefix += "/"
	}

	out := make([]models.FileObject, 0)
	seen := make(map[string]bool)
	for p, obj := range s.buckets[bucket] {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		if dir, _, nested := strings.Cut(rest, "/"); nested {
			if !seen[dir] {
				seen[dir] = true
				out = append(out, models.FileObject{Name: dir})
			}
			continue
		}
		out = append(out, models.FileObject{
			Name:        rest,
			ID:          obj.id,
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			UpdatedAt:   obj.updatedAt,
		})
	}
	slices.SortFunc(out, func(a, b models.FileObject) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Object returns a copy of the stored bytes, for tests.
func (s *Store) Object(bucket, path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.buckets[bucket][path]
	if !ok {
		return nil, false
	}
	return slices.Clone(obj.data), true
}
