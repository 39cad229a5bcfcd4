package shared

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// Day returns the UTC calendar date used as the daily bucketing key.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DurationMs returns end-start in milliseconds, clamped at zero so that
// client clock skew can never produce a negative duration.
func DurationMs(start, end time.Time) int64 {
	d := end.Sub(start).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}
