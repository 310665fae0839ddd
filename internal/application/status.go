package application

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for member dates.
const DateLayout = "2006-01-02"

// PendingWindow is how close to expiry a membership turns Pending.
const PendingWindow = 7 * 24 * time.Hour

// DeriveStatus classifies a membership by its expiry instant relative to now.
// An expiry strictly before now is Expired, one less than PendingWindow ahead
// is Pending, anything later is Active.
func DeriveStatus(expiry, now time.Time) MemberStatus {
	if expiry.Before(now) {
		return MemberExpired
	}
	if expiry.Sub(now) < PendingWindow {
		return MemberPending
	}
	return MemberActive
}

// ParseDate parses a calendar date (YYYY-MM-DD) as midnight UTC. Full RFC 3339
// timestamps are accepted as well.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// deriveStatusFromDate applies DeriveStatus to a stored expiry date. Dates
// that cannot be parsed never compare as past or near, so they derive Active.
func deriveStatusFromDate(expiryDate string, now time.Time) MemberStatus {
	expiry, ok := ParseDate(expiryDate)
	if !ok {
		return MemberActive
	}
	return DeriveStatus(expiry, now)
}
