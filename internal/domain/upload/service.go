// Package upload passes client files through to object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"recordhub/internal/core/apperror"
	"recordhub/pkg/logger"
)

// ErrDisabled is returned by stores that are not configured.
var ErrDisabled = errors.New("object storage not configured")

// ObjectStore is the storage backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Config controls key layout and limits.
type Config struct {
	Prefix  string
	MaxSize int64
	URLTTL  time.Duration
}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Service stores uploads under <prefix>/<unix-ms>-<name>.
type Service struct {
	store  ObjectStore
	config Config
	now    func() time.Time
}

// NewService creates an upload service.
func NewService(store ObjectStore, config Config) *Service {
	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "uploads"
	}
	if config.MaxSize <= 0 {
		config.MaxSize = 10 << 20
	}
	if config.URLTTL <= 0 {
		config.URLTTL = 15 * time.Minute
	}
	return &Service{store: store, config: config, now: time.Now}
}

// Upload stores r and returns its key.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*Object, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, apperror.NewValidation("file name is required").WithDetail("field", "file")
	}
	if size <= 0 {
		return nil, apperror.NewValidation("file is empty").WithDetail("field", "file")
	}
	if size > s.config.MaxSize {
		return nil, apperror.NewValidation("file is too large").
			WithDetail("field", "file").
			WithDetail("max_size", s.config.MaxSize)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%d-%s", s.config.Prefix, s.now().UnixMilli(), name)
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, storageError(err)
	}

	logger.Info(ctx, "file uploaded", "key", key, "size", size)
	return &Object{Key: key, Size: size, ContentType: contentType}, nil
}

// URL returns a time-limited download URL for key.
func (s *Service) URL(ctx context.Context, key string) (string, error) {
	if !s.ownsKey(key) {
		return "", apperror.NewValidation("invalid key").WithDetail("field", "key")
	}
	url, err := s.store.PresignGet(ctx, key, s.config.URLTTL)
	if err != nil {
		return "", storageError(err)
	}
	return url, nil
}

func (s *Service) ownsKey(key string) bool {
	rest, ok := strings.CutPrefix(key, s.config.Prefix+"/")
	return ok && rest != "" && !strings.Contains(rest, "/") && !strings.Contains(rest, "..")
}

func storageError(err error) error {
	if errors.Is(err, ErrDisabled) {
		return apperror.NewStorage(err).WithDetail("reason", "disabled")
	}
	return apperror.NewStorage(err)
}

// sanitizeName keeps the base name and replaces characters unsafe in object keys.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
