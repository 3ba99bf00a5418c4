package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultBatchNumber derives a batch number from a product name and a date:
// BATCH-<initials of the first three words, padded with X>-<YYYYMMDD>.
func DefaultBatchNumber(productName string, date time.Time) string {
	var initials []rune
	for _, word := range strings.Fields(productName) {
		if len(initials) == 3 {
			break
		}
		first := []rune(word)[0]
		initials = append(initials, unicode.ToUpper(first))
	}
	for len(initials) < 3 {
		initials = append(initials, 'X')
	}
	return fmt.Sprintf("BATCH-%s-%s", string(initials), date.UTC().Format("20060102"))
}

// BatchNumberWithID derives a batch number from a product id and the last six
// digits of the millisecond timestamp.
func BatchNumberWithID(productID int64, t time.Time) string {
	ms := fmt.Sprintf("%d", t.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("BATCH-%d-%s", productID, ms)
}
