package objectstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/domain/upload"
)

func TestDisabledClient(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	assert.ErrorIs(t, c.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"), upload.ErrDisabled)
	_, err = c.PresignGet(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, upload.ErrDisabled)
	assert.ErrorIs(t, c.EnsureBucket(ctx), upload.ErrDisabled)
	assert.NoError(t, c.Ping(ctx))
}

func TestNewClient_RequiresBucket(t *testing.T) {
	c, err := NewClient(Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "records",
	})
	require.NoError(t, err)
	require.True(t, c.Enabled())

	_, err = NewClient(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err, "bucket is required")
}
