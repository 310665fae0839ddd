package application

import (
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   MemberStatus
	}{
		{"one nanosecond in the past is expired", now.Add(-time.Nanosecond), MemberExpired},
		{"a month ago is expired", now.AddDate(0, -1, 0), MemberExpired},
		{"equal to now is pending", now, MemberPending},
		{"six days ahead is pending", now.Add(6 * 24 * time.Hour), MemberPending},
		{"just under seven days is pending", now.Add(PendingWindow - time.Nanosecond), MemberPending},
		{"exactly seven days is active", now.Add(PendingWindow), MemberActive},
		{"a year ahead is active", now.AddDate(1, 0, 0), MemberActive},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DeriveStatus(tc.expiry, now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDeriveStatus_IsTotal(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for offset := -30; offset <= 30; offset++ {
		got := DeriveStatus(now.AddDate(0, 0, offset), now)
		if !got.Valid() {
			t.Fatalf("offset %d produced unknown status %q", offset, got)
		}
	}
}

func TestDeriveStatusFromDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := deriveStatusFromDate("2024-02-29", now); got != MemberExpired {
		t.Fatalf("expected Expired, got %s", got)
	}
	if got := deriveStatusFromDate("2024-03-05", now); got != MemberPending {
		t.Fatalf("expected Pending, got %s", got)
	}
	if got := deriveStatusFromDate("2024-03-08", now); got != MemberActive {
		t.Fatalf("expected Active at the seven day boundary, got %s", got)
	}
	if got := deriveStatusFromDate("not a date", now); got != MemberActive {
		t.Fatalf("expected Active for unparseable dates, got %s", got)
	}
}
