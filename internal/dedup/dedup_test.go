package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  OpenAI ":            "openai",
		"Senior  AI   PM":      "senior ai pm",
		"Sr. AI/ML PM!":        "sr ai ml pm",
		"O'Reilly Media, Inc.": "oreilly media inc",
		"":                     "",
		"---":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestFingerprintIgnoresSourceURLAndDescription(t *testing.T) {
	a := domain.Posting{Company: "OpenAI", Title: "Senior AI PM", Source: "lever", URL: "https://a", Description: "one"}
	b := domain.Posting{Company: "openai", Title: "senior ai pm", Source: "greenhouse", URL: "https://b", Description: "two"}
	c := domain.Posting{Company: "OpenAI", Title: "Staff AI PM"}

	assert.Equal(t, "openai:senior ai pm", Fingerprint(a))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	recent := map[string]struct{}{Fingerprint(a): {}}
	assert.True(t, IsDuplicate(b, recent))
	assert.False(t, IsDuplicate(c, recent))
}

type memStore struct {
	at  map[string]time.Time
	err error
}

func (m *memStore) SeenSince(_ context.Context, fp string, since time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	t, ok := m.at[fp]
	return ok && !t.Before(since), nil
}

func TestBatchSameRunTwoSources(t *testing.T) {
	d := New(&memStore{at: map[string]time.Time{}}, 0)
	b := d.NewBatch()
	ctx := context.Background()

	first := domain.Posting{Company: "OpenAI", Title: "Senior AI PM", Source: "lever"}
	second := domain.Posting{Company: "OpenAI", Title: "Senior AI PM", Source: "greenhouse"}

	dup, err := b.IsDuplicate(ctx, Fingerprint(first))
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = b.IsDuplicate(ctx, Fingerprint(second))
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Len(t, b.Seen(), 1)
}

func TestBatchLookbackWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{at: map[string]time.Time{
		"acme:pm":  now.Add(-29 * 24 * time.Hour),
		"acme:old": now.Add(-31 * 24 * time.Hour),
	}}
	d := New(store, 30*24*time.Hour).WithClock(func() time.Time { return now })
	b := d.NewBatch()

	dup, err := b.IsDuplicate(context.Background(), "acme:pm")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = b.IsDuplicate(context.Background(), "acme:old")
	require.NoError(t, err)
	assert.False(t, dup, "entries past the window are expired")
}

func TestBatchStoreErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	b := New(&memStore{err: boom}, 0).NewBatch()

	_, err := b.IsDuplicate(context.Background(), "acme:pm")
	require.ErrorIs(t, err, boom)
	assert.Empty(t, b.Seen())
}

func TestBatchCheckDoesNotMark(t *testing.T) {
	b := New(&memStore{at: map[string]time.Time{}}, 0).NewBatch()
	ctx := context.Background()

	dup, err := b.Check(ctx, "acme:pm")
	require.NoError(t, err)
	assert.False(t, dup)
	dup, err = b.Check(ctx, "acme:pm")
	require.NoError(t, err)
	assert.False(t, dup, "unmarked fingerprint stays new")

	b.Mark("acme:pm")
	dup, err = b.Check(ctx, "acme:pm")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestBatchWithoutStore(t *testing.T) {
	b := New(nil, 0).NewBatch()
	dup, err := b.IsDuplicate(context.Background(), "x:y")
	require.NoError(t, err)
	assert.False(t, dup)
	dup, _ = b.IsDuplicate(context.Background(), "x:y")
	assert.True(t, dup)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, 30*24*time.Hour)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedisStore(t *testing.T) {
	mr, s := setupRedis(t)
	ctx := context.Background()
	now := time.Now()

	seen, err := s.SeenSince(ctx, "openai:senior ai pm", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Remember(ctx, "openai:senior ai pm", now))
	assert.True(t, mr.Exists("jobpilot:fp:openai:senior ai pm"))
	assert.Equal(t, 30*24*time.Hour, mr.TTL("jobpilot:fp:openai:senior ai pm"))

	seen, err = s.SeenSince(ctx, "openai:senior ai pm", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = s.SeenSince(ctx, "openai:senior ai pm", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, seen, "stored time before the window start")

	mr.FastForward(31 * 24 * time.Hour)
	seen, err = s.SeenSince(ctx, "openai:senior ai pm", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, s := setupRedis(t)
	mr.Close()

	_, err := s.SeenSince(context.Background(), "a:b", time.Now())
	assert.Error(t, err)

	b := New(s, 0).NewBatch()
	_, err = b.IsDuplicate(context.Background(), "a:b")
	assert.Error(t, err)
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedisStoreFromURL("redis://"+mr.Addr()+"/0", time.Hour)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	_, err = NewRedisStoreFromURL("::not a url", time.Hour)
	assert.Error(t, err)
}
