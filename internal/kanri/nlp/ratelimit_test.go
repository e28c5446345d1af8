package nlp_test

import (
	"testing"
	"time"

	"github.com/bdobrica/Kanri/internal/kanri/nlp"
)

func TestRateLimiter_PerRequester(t *testing.T) {
	rl := nlp.NewRateLimiter(2, time.Minute)

	if !rl.Allow("alice") || !rl.Allow("alice") {
		t.Fatal("first two calls should pass")
	}
	if rl.Allow("alice") {
		t.Fatal("third call should be limited")
	}
	if rl.Remaining("alice") != 0 {
		t.Fatalf("remaining = %d", rl.Remaining("alice"))
	}
	if !rl.Allow("bob") {
		t.Fatal("bob has his own quota")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := nlp.NewRateLimiter(1, 30*time.Millisecond)
	if !rl.Allow("carol") {
		t.Fatal("first call should pass")
	}
	if rl.Allow("carol") {
		t.Fatal("second call should be limited")
	}
	time.Sleep(50 * time.Millisecond)
	if !rl.Allow("carol") {
		t.Fatal("call after window should pass")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := nlp.NewRateLimiter(0, 0)
	if rl.Remaining("dave") != nlp.DefaultRateLimit {
		t.Fatalf("remaining = %d", rl.Remaining("dave"))
	}
}
