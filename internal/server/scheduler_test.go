package server

import (
	"testing"
	"time"
)

func TestIsDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Minute)
	yesterday := now.Add(-25 * time.Hour)

	cases := []struct {
		name string
		cron string
		last *time.Time
		want bool
	}{
		{"daily no previous run", "@daily", nil, true},
		{"daily ran recently", "@daily", &recent, false},
		{"daily ran yesterday", "@daily", &yesterday, true},
		{"hourly ran recently", "@hourly", &recent, false},
		{"hourly ran yesterday", "@hourly", &yesterday, true},
		{"cron no previous run", "0 3 * * *", nil, true},
		{"cron boundary passed", "0 3 * * *", &yesterday, true},
		{"cron boundary not reached", "0 3 * * *", &recent, false},
		{"invalid spec never fires", "not a cron spec", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDue(tc.cron, tc.last, now); got != tc.want {
				t.Fatalf("isDue(%q, %v, %v) = %v, want %v", tc.cron, tc.last, now, got, tc.want)
			}
		})
	}
}
