package georef

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	provinces   int
	departments int
	localities  int
	err         error
}

func (s *countingSource) Provinces(ctx context.Context) ([]Location, error) {
	s.provinces++
	if s.err != nil {
		return nil, s.err
	}
	return []Location{{Nombre: "Córdoba"}, {Nombre: "Salta"}}, nil
}

func (s *countingSource) Departments(ctx context.Context, provincia string) ([]Location, error) {
	s.departments++
	return []Location{{Nombre: "Capital"}}, nil
}

func (s *countingSource) Localities(ctx context.Context, provincia, departamento string) ([]Location, error) {
	s.localities++
	return []Location{{Nombre: provincia + "/" + departamento}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCached(t *testing.T, next Source) (*CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedSource(next, client, time.Minute, quietLogger()), mr
}

func TestCachedSourceHitsUpstreamOncePerKey(t *testing.T) {
	ctx := context.Background()
	upstream := &countingSource{}
	cached, _ := newCached(t, upstream)

	for i := 0; i < 3; i++ {
		got, err := cached.Provinces(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Córdoba", "Salta"}, Names(got))
	}
	assert.Equal(t, 1, upstream.provinces)

	_, err := cached.Departments(ctx, "Córdoba")
	require.NoError(t, err)
	_, err = cached.Departments(ctx, "CORDOBA")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.departments, "folded parent names share a key")

	_, err = cached.Localities(ctx, "Córdoba", "Capital")
	require.NoError(t, err)
	_, err = cached.Localities(ctx, "Córdoba", "Colón")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.localities)
}

func TestCachedSourceExpiresAndPurges(t *testing.T) {
	ctx := context.Background()
	upstream := &countingSource{}
	cached, mr := newCached(t, upstream)

	_, err := cached.Provinces(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cached.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.provinces)

	require.NoError(t, cached.Purge(ctx))
	_, err = cached.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, upstream.provinces)
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	upstream := &countingSource{err: errors.New("boom")}
	cached, _ := newCached(t, upstream)

	_, err := cached.Provinces(ctx)
	require.Error(t, err)
	upstream.err = nil
	got, err := cached.Provinces(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, upstream.provinces)
}

func TestCachedSourceWithoutRedis(t *testing.T) {
	upstream := &countingSource{}
	cached := NewCachedSource(upstream, nil, time.Minute, nil)
	_, err := cached.Provinces(context.Background())
	require.NoError(t, err)
	_, err = cached.Provinces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.provinces)
	require.NoError(t, cached.Purge(context.Background()))
}

func TestCachedSourceServesUpstreamWhenRedisFails(t *testing.T) {
	ctx := context.Background()
	upstream := &countingSource{}
	cached, mr := newCached(t, upstream)

	mr.SetError("ERR cache unavailable")
	got, err := cached.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Córdoba", "Salta"}, Names(got))
	assert.Equal(t, 1, upstream.provinces)

	mr.SetError("")
	_, err = cached.Provinces(ctx)
	require.NoError(t, err)
	_, err = cached.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.provinces, "cache resumes once Redis recovers")
}
