package settings

import (
	"context"
	"slices"
	"strings"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// Pagination setting keys.
const (
	KeyPaginationEnabled = "pagination_enabled"
	KeyDefaultPageSize   = "default_page_size"
	KeyPageSizeOptions   = "page_size_options"
	KeyRememberPageSize  = "remember_page_size"
)

// FallbackPageSize is used when no page size setting can be read.
const FallbackPageSize = 20

var fallbackPageSizeOptions = []int{5, 10, 20, 50, 100}

// Pagination is the effective pagination configuration.
type Pagination struct {
	Enabled         bool  `json:"enabled"`
	DefaultPageSize int   `json:"default_page_size"`
	Options         []int `json:"options"`
	Remember        bool  `json:"remember"`
}

// ViewPageSizeKey is the key remembering the page size of one view.
func ViewPageSizeKey(view string) string {
	return "page_size_" + strings.TrimSpace(view)
}

// PageSize returns the page size for view. It never fails: a remembered
// per-view size wins, then default_page_size, then FallbackPageSize.
func (s *Store) PageSize(ctx context.Context, view string) int {
	if view != "" && s.boolValue(ctx, KeyRememberPageSize, true) {
		if n := s.positiveInt(ctx, ViewPageSizeKey(view)); n > 0 {
			return n
		}
	}
	if n := s.positiveInt(ctx, KeyDefaultPageSize); n > 0 {
		return n
	}
	return FallbackPageSize
}

// SetPageSize stores size for view, or as the default when view is empty or
// per-view sizes are not remembered. size must be one of the page size options.
func (s *Store) SetPageSize(ctx context.Context, size int, view string) error {
	options := s.pageSizeOptions(ctx)
	if !slices.Contains(options, size) {
		return store.Validation("page size %d is not one of %v", size, options)
	}
	key := KeyDefaultPageSize
	if view != "" && s.boolValue(ctx, KeyRememberPageSize, true) {
		key = ViewPageSizeKey(view)
	}
	return s.Set(ctx, key, size, WithType(KindNumber))
}

// PaginationConfig returns the effective pagination settings.
func (s *Store) PaginationConfig(ctx context.Context) Pagination {
	return Pagination{
		Enabled:         s.boolValue(ctx, KeyPaginationEnabled, true),
		DefaultPageSize: s.PageSize(ctx, ""),
		Options:         s.pageSizeOptions(ctx),
		Remember:        s.boolValue(ctx, KeyRememberPageSize, true),
	}
}

func (s *Store) pageSizeOptions(ctx context.Context) []int {
	raw, ok := s.GetOr(ctx, KeyPageSizeOptions, nil).([]any)
	if !ok {
		return fallbackPageSizeOptions
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok && f > 0 && f == float64(int(f)) {
			out = append(out, int(f))
		}
	}
	if len(out) == 0 {
		return fallbackPageSizeOptions
	}
	return out
}

func (s *Store) boolValue(ctx context.Context, key string, def bool) bool {
	if b, ok := s.GetOr(ctx, key, def).(bool); ok {
		return b
	}
	return def
}

func (s *Store) positiveInt(ctx context.Context, key string) int {
	f, ok := s.GetOr(ctx, key, nil).(float64)
	if !ok || f <= 0 {
		return 0
	}
	return int(f)
}
