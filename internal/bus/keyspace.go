package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const listTTL = 365 * 24 * time.Hour

// SetKeyspace selects the hash used by the key helpers: {namespace}-{name}.
func (c *Client) SetKeyspace(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keyspace = c.namespace + "-" + name
}

func (c *Client) Keyspace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyspace
}

func (c *Client) keyspaceClient() (*redis.Client, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub == nil {
		return nil, "", ErrNotConnected
	}
	if c.keyspace == "" {
		return nil, "", ErrNoKeyspace
	}
	return c.pub, c.keyspace, nil
}

// SetKeys stores each value JSON-encoded as a field of the keyspace hash.
func (c *Client) SetKeys(ctx context.Context, values map[string]any) error {
	pub, ks, err := c.keyspaceClient()
	if err != nil {
		return err
	}
	fields := make(map[string]any, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode key %s: %w", k, err)
		}
		fields[k] = string(data)
	}
	return pub.HSet(ctx, ks, fields).Err()
}

// archiveKey resolves a stored archive name to its hash: {namespace}-{name}.
// Reads never touch the keyspace selected for writing.
func (c *Client) archiveKey(name string) (*redis.Client, string, error) {
	if name == "" {
		return nil, "", ErrNoKeyspace
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub == nil {
		return nil, "", ErrNotConnected
	}
	return c.pub, c.namespace + "-" + name, nil
}

// GetKeys returns the requested fields of the named hash that exist and hold
// valid JSON.
func (c *Client) GetKeys(ctx context.Context, name string, keys ...string) (map[string]json.RawMessage, error) {
	pub, key, err := c.archiveKey(name)
	if err != nil {
		return nil, err
	}
	vals, err := pub.HMGet(ctx, key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out := make(map[string]json.RawMessage, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok || !json.Valid([]byte(s)) {
			continue
		}
		out[keys[i]] = json.RawMessage(s)
	}
	return out, nil
}

func (c *Client) GetAllKeys(ctx context.Context, name string) (map[string]json.RawMessage, error) {
	pub, key, err := c.archiveKey(name)
	if err != nil {
		return nil, err
	}
	vals, err := pub.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out := make(map[string]json.RawMessage, len(vals))
	for k, s := range vals {
		if !json.Valid([]byte(s)) {
			continue
		}
		out[k] = json.RawMessage(s)
	}
	return out, nil
}

// ListPush appends v to the {keyspace}-{list} list and refreshes its one year TTL.
func (c *Client) ListPush(ctx context.Context, list string, v any) error {
	pub, ks, err := c.keyspaceClient()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s entry: %w", list, err)
	}
	key := ks + "-" + list
	_, err = pub.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, string(data))
		p.Expire(ctx, key, listTTL)
		return nil
	})
	return err
}

func (c *Client) ExpireKeyspace(ctx context.Context, ttl time.Duration) error {
	pub, ks, err := c.keyspaceClient()
	if err != nil {
		return err
	}
	return pub.Expire(ctx, ks, ttl).Err()
}
