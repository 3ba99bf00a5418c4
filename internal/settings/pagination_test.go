package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Podjisin/saresari-pos/internal/store"
)

func TestPageSize_PerViewThenDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, 5, s.PageSize(ctx, ""))
	assert.Equal(t, 5, s.PageSize(ctx, "inventory"))

	require.NoError(t, s.SetPageSize(ctx, 20, "inventory"))
	assert.Equal(t, 20, s.PageSize(ctx, "inventory"))
	assert.Equal(t, 5, s.PageSize(ctx, "history"))
	assert.Equal(t, 5, s.PageSize(ctx, ""))

	require.NoError(t, s.SetPageSize(ctx, 50, ""))
	assert.Equal(t, 50, s.PageSize(ctx, "history"))
}

func TestPageSize_NotRemembered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, KeyRememberPageSize, false))

	require.NoError(t, s.SetPageSize(ctx, 10, "inventory"))
	assert.Equal(t, 10, s.PageSize(ctx, ""))
	assert.Equal(t, 10, s.PageSize(ctx, "inventory"))

	_, err := s.Get(ctx, ViewPageSizeKey("inventory"))
	assert.True(t, store.IsNotFound(err))
}

func TestPageSize_FallsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyDefaultPageSize, "oops", WithType(KindString)))
	assert.Equal(t, FallbackPageSize, s.PageSize(ctx, ""))
}

func TestSetPageSize_RejectsUnlistedSize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SetPageSize(ctx, 7, "inventory")
	assert.True(t, store.IsValidation(err))

	require.NoError(t, s.Set(ctx, KeyPageSizeOptions, []int{7, 14}))
	require.NoError(t, s.SetPageSize(ctx, 7, "inventory"))
	assert.Equal(t, 7, s.PageSize(ctx, "inventory"))
}

func TestPaginationConfig(t *testing.T) {
	s := newTestStore(t)

	cfg := s.PaginationConfig(context.Background())
	assert.Equal(t, Pagination{
		Enabled:         true,
		DefaultPageSize: 5,
		Options:         []int{5, 10, 20, 50, 100},
		Remember:        true,
	}, cfg)
}
