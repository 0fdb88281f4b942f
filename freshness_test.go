package qingque

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := ClassConfig{SoftTTL: time.Minute, HardTTL: 5 * time.Minute, FetchTimeout: time.Second}

	tests := []struct {
		name      string
		fetchedAt time.Time
		want      Freshness
	}{
		{"missing", time.Time{}, Missing},
		{"just fetched", now, Fresh},
		{"inside soft window", now.Add(-59 * time.Second), Fresh},
		{"exactly soft ttl", now.Add(-time.Minute), StaleSoft},
		{"between soft and hard", now.Add(-3 * time.Minute), StaleSoft},
		{"just under hard ttl", now.Add(-5*time.Minute + time.Millisecond), StaleSoft},
		{"exactly hard ttl", now.Add(-5 * time.Minute), Expired},
		{"far past hard ttl", now.Add(-time.Hour), Expired},
		{"clock skew future", now.Add(30 * time.Second), Fresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.fetchedAt, now, cfg); got != tt.want {
				t.Fatalf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFreshnessString(t *testing.T) {
	for f, want := range map[Freshness]string{
		Missing:   "missing",
		Fresh:     "fresh",
		StaleSoft: "stale_soft",
		Expired:   "expired",
	} {
		if got := f.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", f, got, want)
		}
	}
}
