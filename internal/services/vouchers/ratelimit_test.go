package vouchers

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsThreePerWindow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("cliente@terralima.pe"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	ok, resetIn := rl.Allow("cliente@terralima.pe")
	if ok {
		t.Fatal("fourth attempt inside the window must be denied")
	}
	if resetIn <= 0 || resetIn > 61 {
		t.Errorf("resetIn = %d minutes, want a value within the hour", resetIn)
	}
}

func TestRateLimiterIsPerIdentifier(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("a@terralima.pe")
	}
	if ok, _ := rl.Allow("b@terralima.pe"); !ok {
		t.Error("a different identifier must have its own quota")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter()
	base := time.Now()
	rl.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		rl.Allow("cliente@terralima.pe")
	}
	if ok, _ := rl.Allow("cliente@terralima.pe"); ok {
		t.Fatal("quota should be exhausted")
	}

	// After the window passes the quota starts over
	rl.now = func() time.Time { return base.Add(windowSize + time.Second) }
	if ok, _ := rl.Allow("cliente@terralima.pe"); !ok {
		t.Error("expired window should reset the quota")
	}
}
