// Package rediscas stores envelope blocks in Redis, one string key per block.
package rediscas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/redis/go-redis/v9"

	"xdao.co/envelope/cidutil"
	"xdao.co/envelope/storage"
)

const (
	defaultPrefix  = "envelope:block:"
	defaultTimeout = 5 * time.Second
)

// Config describes the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int
	// Prefix is prepended to every block CID. Defaults to "envelope:block:".
	Prefix string
	// Timeout bounds each command. Defaults to 5s.
	Timeout time.Duration
}

// CAS is a block store over a Redis client.
type CAS struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

var (
	_ storage.CAS    = (*CAS)(nil)
	_ storage.Lister = (*CAS)(nil)
)

// New connects to Redis and pings it before returning.
func New(cfg Config) (*CAS, error) {
	if cfg.Address == "" {
		return nil, errors.New("rediscas: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	c := NewWithClient(client, cfg.Prefix, cfg.Timeout)
	ctx, cancel := c.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rediscas: connect %s: %w", cfg.Address, err)
	}
	return c, nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *redis.Client, prefix string, timeout time.Duration) *CAS {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CAS{client: client, prefix: prefix, timeout: timeout}
}

func (c *CAS) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *CAS) key(id cid.Cid) string { return c.prefix + id.String() }

func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(data)
	if err != nil {
		return cid.Undef, err
	}
	ctx, cancel := c.ctx()
	defer cancel()
	created, err := c.client.SetNX(ctx, c.key(id), data, 0).Result()
	if err != nil {
		return cid.Undef, fmt.Errorf("rediscas: put %s: %w", id, err)
	}
	if created {
		return id, nil
	}
	existing, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil || !bytes.Equal(existing, data) {
		return cid.Undef, storage.ErrImmutable
	}
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	ctx, cancel := c.ctx()
	defer cancel()
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("rediscas: get %s: %w", id, err)
	}
	if !cidutil.Verify(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	return err == nil && n > 0
}

// List scans the key space under the prefix.
func (c *CAS) List() ([]cid.Cid, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	set := map[cid.Cid]struct{}{}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		id, err := cidutil.Parse(strings.TrimPrefix(iter.Val(), c.prefix))
		if err != nil {
			continue
		}
		set[id] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("rediscas: scan: %w", err)
	}
	return storage.SortCIDs(set), nil
}

func (c *CAS) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
