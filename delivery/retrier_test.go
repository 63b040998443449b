package delivery_test

import (
	"testing"
	"time"

	"github.com/tributo/courier/delivery"
	"github.com/tributo/courier/document"
)

func TestRetrierShouldRetry(t *testing.T) {
	r := delivery.NewRetrier(delivery.RetryConfig{MaxAttempts: 3})

	tests := []struct {
		name     string
		phase    document.ErrorPhase
		attempts int
		want     bool
	}{
		{"first failure", document.PhaseSendXMLFile, 1, true},
		{"second failure", document.PhaseSendXMLFile, 2, true},
		{"ceiling reached", document.PhaseSendXMLFile, 3, false},
		{"past ceiling", document.PhaseSendXMLFile, 4, false},
		{"fetch retries", document.PhaseFetchFile, 1, true},
		{"cdr save retries", document.PhaseSaveCDR, 1, true},
		{"parse failure never retries", document.PhaseReadXMLFile, 1, false},
		{"missing company never retries", document.PhaseCompanyNotFound, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ShouldRetry(tt.phase, tt.attempts); got != tt.want {
				t.Errorf("ShouldRetry(%q, %d) = %v, want %v", tt.phase, tt.attempts, got, tt.want)
			}
		})
	}
}

func TestRetrierNextDelayGrowth(t *testing.T) {
	r := delivery.NewRetrier(delivery.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Minute,
		Factor:      5,
		MaxDelay:    time.Hour,
	})

	// Nominal delays before jitter: 1m, 5m, 25m, then capped at 1h.
	nominal := []time.Duration{time.Minute, 5 * time.Minute, 25 * time.Minute, time.Hour}
	for i, want := range nominal {
		attempts := i + 1
		got := r.NextDelay(attempts)

		lo := time.Duration(float64(want) * 0.79)
		hi := time.Duration(float64(want) * 1.21)
		if got < lo || got > hi {
			t.Errorf("NextDelay(%d) = %v, want within [%v, %v]", attempts, got, lo, hi)
		}
	}
}

func TestRetrierNextDelayJitterVaries(t *testing.T) {
	r := delivery.NewRetrier(delivery.DefaultRetryConfig())

	seen := map[time.Duration]bool{}
	for i := 0; i < 50; i++ {
		seen[r.NextDelay(1)] = true
	}
	if len(seen) < 2 {
		t.Error("expected jitter to produce varying delays")
	}
}

func TestNewRetrierDefaults(t *testing.T) {
	r := delivery.NewRetrier(delivery.RetryConfig{})

	if got := r.MaxAttempts(); got != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got)
	}
	d := r.NextDelay(1)
	if d < 48*time.Second || d > 72*time.Second {
		t.Errorf("NextDelay(1) = %v, want about one minute", d)
	}
}
