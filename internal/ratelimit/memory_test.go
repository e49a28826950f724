package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("hit over limit should be denied")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first hit for key a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("first hit for key b should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("second hit for key a should be denied")
	}
}

func TestLimiterWindowResets(t *testing.T) {
	l := NewLimiter(1, 10*time.Millisecond)

	if !l.Allow("x") {
		t.Fatal("first hit should be allowed")
	}
	if l.Allow("x") {
		t.Fatal("second hit should be denied")
	}

	time.Sleep(20 * time.Millisecond)
	if !l.Allow("x") {
		t.Fatal("hit after window reset should be allowed")
	}
}
