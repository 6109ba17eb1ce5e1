package shard

import (
	"errors"
	"fmt"
	"unicode/utf16"
)

var (
	// ErrNoShards is returned when routing is attempted with no shards configured.
	ErrNoShards = errors.New("no shards configured")

	// ErrInvalidShardIndex is returned when an explicit shard index is out of range.
	ErrInvalidShardIndex = errors.New("invalid shard index")
)

// Router maps shard keys onto a fixed, ordered list of shard configs.
//
// The router holds no mutable state after construction and is safe for
// concurrent use without locking. Configs are returned by value so callers
// cannot alter the routing table.
//
// Performance Characteristics:
//   - ShardFor: O(k) where k is the key length
//   - ShardByIndex: O(1)
//   - AllShards: O(n) copy of the shard list
type Router struct {
	// shards is the ordered shard list. Position i is shard index i.
	shards []Config
}

// NewRouter creates a router over the given shards. The slice is copied.
//
// An empty list is accepted; every routing call on such a router fails with
// ErrNoShards. This matches a process that starts with a bad configuration and
// reports it per request rather than refusing to build the router.
//
// Example:
//
//	r := NewRouter([]Config{
//	    {Host: "db1", Port: 3306, Database: "polling_shard_1"},
//	    {Host: "db2", Port: 3306, Database: "polling_shard_2"},
//	})
//	cfg, err := r.ShardFor("user_1718000000000_abc123xyz")
func NewRouter(shards []Config) *Router {
	return &Router{shards: append([]Config(nil), shards...)}
}

// ShardFor returns the shard owning key.
//
// Returns:
//   - The shard config at IndexFor(key)
//   - ErrNoShards if the router has no shards
func (r *Router) ShardFor(key string) (Config, error) {
	idx, err := r.IndexFor(key)
	if err != nil {
		return Config{}, err
	}
	return r.shards[idx], nil
}

// IndexFor returns the index of the shard owning key.
func (r *Router) IndexFor(key string) (int, error) {
	if len(r.shards) == 0 {
		return 0, ErrNoShards
	}
	return Index(key, len(r.shards)), nil
}

// ShardByIndex returns the shard at position i.
//
// Returns:
//   - The shard config at i
//   - ErrNoShards if the router has no shards
//   - ErrInvalidShardIndex (wrapped with the index) if i is outside [0, N)
func (r *Router) ShardByIndex(i int) (Config, error) {
	if len(r.shards) == 0 {
		return Config{}, ErrNoShards
	}
	if i < 0 || i >= len(r.shards) {
		return Config{}, fmt.Errorf("%w: %d, must be in range [0, %d)", ErrInvalidShardIndex, i, len(r.shards))
	}
	return r.shards[i], nil
}

// AllShards returns a copy of the shard list in index order.
func (r *Router) AllShards() []Config {
	return append([]Config(nil), r.shards...)
}

// ShardCount returns the number of configured shards.
func (r *Router) ShardCount() int {
	return len(r.shards)
}

// Index maps key onto [0, n). n must be positive.
func Index(key string, n int) int {
	h := int64(Hash(key))
	if h < 0 {
		h = -h
	}
	return int(h % int64(n))
}

// Hash folds the UTF-16 code units of key into a signed 32-bit integer using
// hash = hash*31 + unit with wraparound at every step.
func Hash(key string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(key)) {
		h = h*31 + int32(unit)
	}
	return h
}
