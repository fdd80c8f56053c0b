package hasher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := New(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)

	ok, err := h.Compare(ctx, hash, "Secret123")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(ctx, hash, "secret123")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestBcrypt_SaltedHashesDiffer(t *testing.T) {
	h := New(bcrypt.MinCost, 1)
	ctx := context.Background()

	first, err := h.Hash(ctx, "Secret123")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcrypt_MalformedHash(t *testing.T) {
	h := New(bcrypt.MinCost, 1)

	ok, err := h.Compare(context.Background(), "not-a-bcrypt-hash", "Secret123")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcrypt_CancelledContext(t *testing.T) {
	h := New(bcrypt.MinCost, 1)

	// Hold the only slot so the next call has to wait.
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Secret123")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.Compare(ctx, "$2a$04$abc", "Secret123")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBcrypt_Concurrent(t *testing.T) {
	h := New(bcrypt.MinCost, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "Secret123")
			assert.NoError(t, err)
			ok, err := h.Compare(ctx, hash, "Secret123")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestNew_Defaults(t *testing.T) {
	h := New(0, 0)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
	assert.NotNil(t, h.sem)
}
