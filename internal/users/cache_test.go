package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SubjectCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return NewSubjectCache(client, ttl), srv
}

func TestSubjectCacheRoundTrip(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	ctx := context.Background()
	subject := Subject{ID: ids.New(), Email: "ann@x.com"}

	_, ok, err := cache.Get(ctx, subject.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, subject))
	got, ok, err := cache.Get(ctx, subject.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, subject, got)
	assert.Equal(t, time.Minute, srv.TTL("hs:subject:"+subject.ID.String()))

	srv.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, subject.ID)
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire with its ttl")
}

func TestSubjectCacheCorruptEntry(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	id := ids.New()
	require.NoError(t, srv.Set("hs:subject:"+id.String(), "{not json"))

	_, ok, err := cache.Get(context.Background(), id)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNilSubjectCacheIsAlwaysMiss(t *testing.T) {
	cache := NewSubjectCache(nil, time.Minute)
	assert.Nil(t, cache)

	_, ok, err := cache.Get(context.Background(), ids.New())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Put(context.Background(), Subject{ID: ids.New()}))
	assert.NoError(t, cache.Invalidate(context.Background(), ids.New()))
	assert.NoError(t, cache.Tombstone(context.Background(), ids.New()))
}

func TestSubjectCacheTombstoneBlocksLaterPut(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	ctx := context.Background()
	subject := Subject{ID: ids.New(), Email: "ann@x.com"}
	key := "hs:subject:" + subject.ID.String()

	require.NoError(t, cache.Put(ctx, subject))
	require.NoError(t, cache.Tombstone(ctx, subject.ID))
	assert.Equal(t, 2*time.Minute, srv.TTL(key))

	_, ok, err := cache.Get(ctx, subject.ID)
	assert.ErrorIs(t, err, ErrSubjectDeleted)
	assert.False(t, ok)

	assert.ErrorIs(t, cache.Put(ctx, subject), ErrSubjectDeleted)
	_, _, err = cache.Get(ctx, subject.ID)
	assert.ErrorIs(t, err, ErrSubjectDeleted, "put must not overwrite the tombstone")

	srv.FastForward(3 * time.Minute)
	require.NoError(t, cache.Put(ctx, subject))
}

func TestSubjectCachePutKeepsConcurrentEntry(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	subject := Subject{ID: ids.New(), Email: "ann@x.com"}

	require.NoError(t, cache.Put(ctx, subject))
	require.NoError(t, cache.Put(ctx, subject))
	got, ok, err := cache.Get(ctx, subject.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, subject, got)
}

func TestResolveSubjectUsesCacheAndDropsItOnChange(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	svc, _, _ := newTestService(t, cache)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)
	key := "hs:subject:" + user.ID.String()

	subject, err := svc.ResolveSubject(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Subject{ID: user.ID, Email: "ann@x.com"}, subject)
	assert.True(t, srv.Exists(key), "resolved subject should be cached")

	email := "ann.new@x.com"
	_, err = svc.Update(ctx, user.ID, UpdateInput{Email: &email})
	require.NoError(t, err)
	assert.False(t, srv.Exists(key), "update must invalidate the cached subject")

	subject, err = svc.ResolveSubject(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann.new@x.com", subject.Email)

	require.NoError(t, svc.Delete(ctx, user.ID))
	raw, err := srv.Get(key)
	require.NoError(t, err)
	assert.Equal(t, tombstone, raw, "delete must replace the cached subject")

	_, err = svc.ResolveSubject(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

// pausingRepo holds FindByID after the row has been read until resume closes.
type pausingRepo struct {
	*Repository
	once    sync.Once
	reached chan struct{}
	resume  chan struct{}
}

func (r *pausingRepo) FindByID(ctx context.Context, id ids.ID) (*models.User, error) {
	user, err := r.Repository.FindByID(ctx, id)
	r.once.Do(func() { close(r.reached) })
	<-r.resume
	return user, err
}

func TestResolveSubjectRacingDeleteReportsNotFound(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	repo := &pausingRepo{
		Repository: NewRepository(newTestDB(t)),
		reached:    make(chan struct{}),
		resume:     make(chan struct{}),
	}
	svc, _ := newTestServiceWithRepo(t, repo, cache)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ResolveSubject(ctx, user.ID)
		done <- err
	}()

	<-repo.reached
	require.NoError(t, svc.Delete(ctx, user.ID))
	close(repo.resume)

	assert.ErrorIs(t, <-done, ErrNotFound, "a lookup that read the row before the delete must not succeed")
	_, err = svc.ResolveSubject(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFailsWhenTombstoneCannotBeWritten(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	svc, _, _ := newTestService(t, cache)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.ResolveSubject(ctx, user.ID)
	require.NoError(t, err)

	srv.SetError("ERR cache offline")
	err = svc.Delete(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	srv.SetError("")

	_, err = svc.FindByID(ctx, user.ID)
	require.NoError(t, err, "the account must survive a delete that could not tombstone")

	require.NoError(t, svc.Delete(ctx, user.ID))
	_, err = svc.ResolveSubject(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOfUnknownUserLeavesNoTombstone(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	svc, _, _ := newTestService(t, cache)
	id := ids.New()

	assert.ErrorIs(t, svc.Delete(context.Background(), id), ErrNotFound)
	assert.False(t, srv.Exists("hs:subject:"+id.String()))
}

func TestResolveSubjectFallsBackWhenRedisIsDown(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	svc, _, _ := newTestService(t, cache)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)

	srv.SetError("ERR cache offline")
	subject, err := svc.ResolveSubject(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject.ID)
}
