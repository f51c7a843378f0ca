package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("chart:AAPL:1h", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes("chart:AAPL:1h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(b) != "payload" {
		t.Fatalf("got %q ok=%v", b, ok)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	_ = c.SetBytes("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()
	if _, ok, _ := c.GetBytes("absent"); ok {
		t.Fatalf("expected miss for absent key")
	}
}

func TestKeyNormalizesSymbol(t *testing.T) {
	a := Key("chart", "aapl", "1h", "1mo")
	b := Key("chart", "AAPL", "1h", "1mo")
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if a != "chart:AAPL:1h:1mo" {
		t.Fatalf("key = %s", a)
	}
}
