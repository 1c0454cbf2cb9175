package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/core/apperror"
)

type memStore struct {
	objects map[string]string
	err     error
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = string(b)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://files.test/" + key + "?ttl=" + ttl.String(), nil
}

func newTestService(store *memStore) *Service {
	svc := NewService(store, Config{Prefix: "/students/", MaxSize: 16})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestUpload_KeyLayout(t *testing.T) {
	store := &memStore{objects: map[string]string{}}
	svc := newTestService(store)

	obj, err := svc.Upload(context.Background(), "my photo.png", strings.NewReader("abc"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "students/1700000000000-my_photo.png", obj.Key)
	assert.Equal(t, "abc", store.objects[obj.Key])

	obj, err = svc.Upload(context.Background(), `C:\tmp\..\cv.pdf`, strings.NewReader("x"), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "students/1700000000000-cv.pdf", obj.Key)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
}

func TestUpload_Rejects(t *testing.T) {
	svc := newTestService(&memStore{objects: map[string]string{}})
	ctx := context.Background()

	_, err := svc.Upload(ctx, "", strings.NewReader("x"), 1, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Upload(ctx, "a.txt", strings.NewReader(""), 0, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Upload(ctx, "a.txt", strings.NewReader(strings.Repeat("x", 17)), 17, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestUpload_StorageFailure(t *testing.T) {
	svc := newTestService(&memStore{err: ErrDisabled})

	_, err := svc.Upload(context.Background(), "a.txt", strings.NewReader("x"), 1, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeStorage))
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestURL(t *testing.T) {
	svc := newTestService(&memStore{objects: map[string]string{}})
	ctx := context.Background()

	url, err := svc.URL(ctx, "students/1-a.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/students/1-a.txt?ttl=15m0s", url)

	for _, key := range []string{"", "other/1-a.txt", "students/", "students/x/../../etc", "students/a/b"} {
		_, err := svc.URL(ctx, key)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation), key)
	}
}
