package ledger

import (
	"time"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// ExpiringSoonWindow is how far ahead a batch counts as expiring soon.
const ExpiringSoonWindow = 30 * 24 * time.Hour

// ExpirationStatus classifies a batch expiration date relative to now.
type ExpirationStatus struct {
	Expired      bool `json:"expired"`
	ExpiringSoon bool `json:"expiring_soon"`
}

// CheckExpiration reports the status of an expiration date. ok is false when
// the batch has no (parseable) expiration date.
func CheckExpiration(expirationDate *string, now time.Time) (status ExpirationStatus, ok bool) {
	if expirationDate == nil || *expirationDate == "" {
		return ExpirationStatus{}, false
	}
	exp, err := time.Parse(store.DateLayout, *expirationDate)
	if err != nil {
		return ExpirationStatus{}, false
	}
	status.Expired = exp.Before(now)
	status.ExpiringSoon = !status.Expired && exp.Before(now.Add(ExpiringSoonWindow))
	return status, true
}
