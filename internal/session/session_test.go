package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/promptlab/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newService(store storage.Storage) *Service {
	return NewService(store, zap.NewNop(), WithDelay(0), WithHashCost(bcrypt.MinCost))
}

func TestRegisterLogsIn(t *testing.T) {
	ctx := context.Background()
	s := newService(storage.NewMemoryStorage())

	u, err := s.Register(ctx, "Ada", " Ada@Example.com ", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	cur, ok, err := s.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u, cur)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newService(storage.NewMemoryStorage())

	_, err := s.Register(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	_, err = s.Register(ctx, "Other", "ADA@example.com", "x")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestPasswordsAreHashed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	s := newService(store)

	_, err := s.Register(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)

	raw, err := store.Get(ctx, storage.KeyUsers)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), `"secret"`))
	assert.Contains(t, string(raw), "passwordHash")
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	s := newService(storage.NewMemoryStorage())
	reg, err := s.Register(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	_, ok, err := s.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := s.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, reg, u)
}

func TestCurrentWithoutSession(t *testing.T) {
	_, ok, err := newService(storage.NewMemoryStorage()).Current(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormValidation(t *testing.T) {
	ctx := context.Background()
	s := newService(storage.NewMemoryStorage())

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"login missing password", func() error { _, err := s.Login(ctx, "a@b.co", ""); return err }, "Please fill in all fields"},
		{"register missing name", func() error { _, err := s.Register(ctx, " ", "a@b.co", "p"); return err }, "Please fill in all fields"},
		{"register bad email", func() error { _, err := s.Register(ctx, "A", "not-an-email", "p"); return err }, "Please enter a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var fe *FormError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.want, fe.Message)
			assert.NotEmpty(t, fe.Fields)
		})
	}
}

func TestDelayHonorsContext(t *testing.T) {
	s := NewService(storage.NewMemoryStorage(), zap.NewNop(), WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Login(ctx, "a@b.co", "p")
	assert.ErrorIs(t, err, context.Canceled)
}
