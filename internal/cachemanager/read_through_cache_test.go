package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type createInput struct {
	Name string
}

func newCountingLoader(calls *int, err error) func(context.Context, createInput) (replay, error) {
	return func(_ context.Context, in createInput) (replay, error) {
		*calls++
		if err != nil {
			return replay{}, err
		}
		return replay{Status: 201, Body: in.Name}, nil
	}
}

func TestReadThroughCache_LoadsOnceThenHits(t *testing.T) {
	calls := 0
	cache := NewInMemoryCacheManager[replayKey, replay]("idempotency", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[replayKey, replay, createInput](cache, newCountingLoader(&calls, nil), false)

	v, hit, err := rt.Get(context.Background(), "k", createInput{Name: "first"}, time.Minute)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "first", v.Body)

	v, hit, err = rt.Get(context.Background(), "k", createInput{Name: "second"}, time.Minute)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "first", v.Body, "replayed value wins")
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_ErrorsAreNotCached(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	cache := NewInMemoryCacheManager[replayKey, replay]("idempotency", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[replayKey, replay, createInput](cache, newCountingLoader(&calls, boom), false)

	for i := 0; i < 2; i++ {
		_, hit, err := rt.Get(context.Background(), "k", createInput{}, time.Minute)
		require.ErrorIs(t, err, boom)
		require.False(t, hit)
	}
	require.Equal(t, 2, calls)
	require.Equal(t, 0, cache.Len())
}

func TestReadThroughCache_SkipCache(t *testing.T) {
	calls := 0
	cache := NewInMemoryCacheManager[replayKey, replay]("idempotency", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[replayKey, replay, createInput](cache, newCountingLoader(&calls, nil), true)

	for i := 0; i < 3; i++ {
		_, hit, err := rt.Get(context.Background(), "k", createInput{}, time.Minute)
		require.NoError(t, err)
		require.False(t, hit)
	}
	require.Equal(t, 3, calls)
	require.Equal(t, 0, cache.Len())
}

func TestReadThroughCache_EmptyKeyBypasses(t *testing.T) {
	calls := 0
	cache := NewInMemoryCacheManager[replayKey, replay]("idempotency", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[replayKey, replay, createInput](cache, newCountingLoader(&calls, nil), false)

	_, _, err := rt.Get(context.Background(), "", createInput{}, time.Minute)
	require.NoError(t, err)
	_, _, err = rt.Get(context.Background(), "", createInput{}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
