// Package shard maps entity keys onto the fixed set of SQL shards that back the
// polling service.
//
// # Overview
//
// A shard is one independently addressable database holding a disjoint subset
// of users, polls and votes. The package owns two things: the immutable shard
// description ([Config]) and the [Router] that turns a shard key into one of
// those descriptions.
//
// # Key Routing
//
// Routing is a pure function of the key and the configured shard list:
//
//	key ──► hash31(key) ──► |hash| mod N ──► shards[i]
//	"hello"              ──► 99162322    ──► 99162322 % 3 = 1
//	"polygenelubricants" ──► -2147483648 ──► 2147483648 % 3 = 2
//
// hash31 folds the key's UTF-16 code units into a signed 32-bit integer with
// hash = hash*31 + unit, wrapping on overflow at every step. The absolute value
// is taken in 64 bits so that math.MinInt32 maps to 2^31 rather than
// overflowing back to a negative number.
//
// The mapping is stable for a given key and shard list across calls and across
// process restarts. There is no consistent hashing: adding or removing a shard
// changes the modulus and silently moves most keys. The shard list is therefore
// fixed for the lifetime of the process.
//
// # Identity
//
// Each shard is identified by "host:port/database". The identity is what the
// connection registry keys its handles on and what query results report back
// to callers. Credentials never appear in the identity.
//
// # Errors
//
//   - [ErrNoShards] - the router was built with an empty shard list
//   - [ErrInvalidShardIndex] - ShardByIndex received an index outside [0, N)
package shard
