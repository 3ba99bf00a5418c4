package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckExpiration(t *testing.T) {
	now := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		date   *string
		want   ExpirationStatus
		wantOK bool
	}{
		{"no date", nil, ExpirationStatus{}, false},
		{"blank", strPtr(""), ExpirationStatus{}, false},
		{"garbage", strPtr("soon"), ExpirationStatus{}, false},
		{"past", strPtr("2025-01-01"), ExpirationStatus{Expired: true}, true},
		{"earlier today", strPtr("2025-01-15"), ExpirationStatus{Expired: true}, true},
		{"within window", strPtr("2025-02-10"), ExpirationStatus{ExpiringSoon: true}, true},
		{"beyond window", strPtr("2025-03-01"), ExpirationStatus{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CheckExpiration(tt.date, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
