package rediscas

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
	"xdao.co/envelope/storage/testkit"
)

func TestConfigFromOptions(t *testing.T) {
	if _, err := configFromOptions(casregistry.Options{}); err == nil {
		t.Fatalf("expected missing addr error")
	}
	if _, err := configFromOptions(casregistry.Options{"addr": "x:1", "db": "one"}); err == nil {
		t.Fatalf("expected db parse error")
	}
	cfg, err := configFromOptions(casregistry.Options{"addr": "localhost:6379", "db": "2", "timeout": "250ms"})
	if err != nil {
		t.Fatalf("configFromOptions: %v", err)
	}
	if cfg.Address != "localhost:6379" || cfg.DB != 2 || cfg.Timeout != 250*time.Millisecond || cfg.Prefix != defaultPrefix {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewWithClientDefaults(t *testing.T) {
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "", 0)
	defer c.Close()
	if c.prefix != defaultPrefix || c.timeout != defaultTimeout {
		t.Fatalf("defaults not applied: %q %v", c.prefix, c.timeout)
	}
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected missing address error")
	}
}

// Set ENVELOPE_TEST_REDIS_ADDR to run the conformance suite against a live server.
func TestRedis_Conformance(t *testing.T) {
	addr := os.Getenv("ENVELOPE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENVELOPE_TEST_REDIS_ADDR not set")
	}
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		cas, err := New(Config{Address: addr, Prefix: "envelope:test:" + t.Name() + ":"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() {
			ids, _ := cas.List()
			for _, id := range ids {
				cas.client.Del(context.Background(), cas.key(id))
			}
			_ = cas.Close()
		})
		return cas
	})
}
