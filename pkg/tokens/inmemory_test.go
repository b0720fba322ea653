package tokens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenStorer_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryTokenStorer()

	token, err := s.Create(ctx, "cloudtrail-forwarder")
	require.NoError(t, err)
	assert.Len(t, token.ID, 32)
	assert.Equal(t, "cloudtrail-forwarder", token.Name)

	got, err := s.Get(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.Delete(ctx, token.ID))

	_, err = s.Get(ctx, token.ID)
	assert.Equal(t, ErrTokenNotFound, err)
}

func TestFactory_RejectsUnknownBackend(t *testing.T) {
	f := NewFactory()
	f.TokenStorageBackend = "etcd"

	_, err := f.GetTokensStore(context.Background(), nil)
	assert.Error(t, err)
}

func TestFactory_PostgresRequiresDB(t *testing.T) {
	f := NewFactory()
	f.TokenStorageBackend = "postgres"

	_, err := f.GetTokensStore(context.Background(), nil)
	assert.Error(t, err)
}
