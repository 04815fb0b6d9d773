package storage

import (
	"context"
	"regexp"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockRedis(t *testing.T) (*miniredis.Miniredis, *RedisStorage) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStorageFromClient(client, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	return mr, store
}

func backends(t *testing.T) map[string]Storage {
	_, rs := setupMockRedis(t)
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"redis":  rs,
	}
}

func TestStorage_GetMissingKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "absent")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStorage_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "k", []byte(`[1,2]`)))
			require.NoError(t, s.Set(ctx, "k", []byte(`[]`)))

			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))
		})
	}
}

func TestRedisStorage_WritesUnderPrefixedKey(t *testing.T) {
	mr, rs := setupMockRedis(t)
	s := Prefixed{Storage: rs, Prefix: "ai_lab_"}

	require.NoError(t, SetJSON(context.Background(), s, KeyPrompts, []string{"a"}))

	raw, err := mr.Get("ai_lab_prompts")
	require.NoError(t, err)
	assert.JSONEq(t, `["a"]`, raw)
	assert.False(t, mr.Exists("prompts"))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	var out []int
	assert.ErrorIs(t, GetJSON(ctx, s, "nums", &out), ErrNotFound)

	require.NoError(t, SetJSON(ctx, s, "nums", []int{3, 1}))
	require.NoError(t, GetJSON(ctx, s, "nums", &out))
	assert.Equal(t, []int{3, 1}, out)

	require.NoError(t, s.Set(ctx, "bad", []byte("{")))
	err := GetJSON(ctx, s, "bad", &out)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.Set(ctx, "k", []byte("abc")))

	v, _ := s.Get(ctx, "k")
	v[0] = 'x'

	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, s.Writes())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "lab", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=lab sslmode=disable", cfg.DSN())
}

func TestMigrations_ValueColumnAcceptsNULEscapes(t *testing.T) {
	sql, err := migrations.ReadFile("migrations.sql")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`(?m)^\s*value\s+TEXT NOT NULL,`), string(sql))
	assert.NotRegexp(t, regexp.MustCompile(`(?m)^\s*value\s+JSONB`), string(sql))
}

func TestStorage_NULInContentRoundTrips(t *testing.T) {
	ctx := context.Background()
	type doc struct {
		Content string `json:"content"`
	}
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, SetJSON(ctx, s, KeyPrompts, doc{Content: "a\x00b"}))

			raw, err := s.Get(ctx, KeyPrompts)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `\u0000`)
			assert.NotContains(t, string(raw), "\x00", "stored text carries no raw NUL byte")

			var got doc
			require.NoError(t, GetJSON(ctx, s, KeyPrompts, &got))
			assert.Equal(t, "a\x00b", got.Content)
		})
	}
}
