package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordHasher_Cost(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"Configured", 10, 10},
		{"Minimum", bcrypt.MinCost, bcrypt.MinCost},
		{"Too Low Falls Back", 1, DefaultCost},
		{"Too High Falls Back", bcrypt.MaxCost + 1, DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPasswordHasher(tt.in).Cost())
		})
	}
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()
	f := gofakeit.New(7)

	for i := 0; i < 5; i++ {
		p1 := f.Password(true, true, true, false, false, 12)
		p2 := p1 + "x"

		hash, err := h.Hash(ctx, p1)
		require.NoError(t, err)
		assert.NotEqual(t, p1, hash)

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)

		assert.True(t, h.Verify(ctx, p1, hash))
		assert.False(t, h.Verify(ctx, p2, hash))
	}
}

func TestPasswordHasher_SaltsEachHash(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash(context.Background(), "password123")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "password123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_VerifyNeverFails(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()

	assert.False(t, h.Verify(ctx, "password123", ""))
	assert.False(t, h.Verify(ctx, "password123", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify(ctx, "password123", "$2a$04$short"))
}

func TestPasswordHasher_TooLong(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash(context.Background(), strings.Repeat("a", 73))
	assert.True(t, IsPasswordTooLong(err))
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash(context.Background(), "password123")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill every slot so the cancelled ctx is the only way out.
	for i := 0; i < cap(h.slots); i++ {
		h.slots <- struct{}{}
	}
	defer func() {
		for i := 0; i < cap(h.slots); i++ {
			<-h.slots
		}
	}()

	_, err = h.Hash(ctx, "password123")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.Verify(ctx, "password123", hash))
}

func TestPasswordHasher_CompareDecoy(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(bcrypt.MinCost)

	h.CompareDecoy(context.Background(), "whatever")
	require.NotEmpty(t, h.decoy)
	cost, err := bcrypt.Cost(h.decoy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
