package goToken

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/MrEthical07/goToken/internal/clock"
)

const testSecret = "test-secret-test-secret-test-secret"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SecretKey = []byte(testSecret)
	return cfg
}

type engineOption func(*Builder)

func newTestEngine(t *testing.T, cfg Config, opts ...engineOption) *Engine {
	t.Helper()
	b := New().WithConfig(cfg)
	for _, opt := range opts {
		opt(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func withClock(c Clock) engineOption {
	return func(b *Builder) { b.WithClock(c) }
}

func fixtureClock() *clock.FixtureClock {
	return clock.NewFixtureClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

// opaqueConn stands in for a live connection object: a struct with no JSON
// representation.
type opaqueConn struct {
	conn net.Conn
}

func constHeaders(h map[string]any) HeadersLoader {
	return func(context.Context, any) (map[string]any, error) {
		return h, nil
	}
}

func headerString(t *testing.T, tok *DecodedToken, key string) string {
	t.Helper()
	v, ok := tok.Header[key]
	if !ok {
		t.Fatalf("header %q missing from %s", key, tok.Header.String())
	}
	s, ok := v.AsString()
	if !ok {
		t.Fatalf("header %q is not a string: %s", key, v)
	}
	return s
}
