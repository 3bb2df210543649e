// Package redis implements store.Store on Redis. Suitable for
// high-throughput deployments that can tolerate Redis durability
// semantics. Records are stored as Hashes; per-engine job and event
// memberships are Sorted Sets scored by time.
//
// The caller owns the Redis client lifecycle -- redis never closes it.
// Pass the client through the constructor:
//
//	import (
//	    goredis "github.com/redis/go-redis/v9"
//	    "github.com/jeethualex/harness/store/redis"
//	)
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	store := redis.New(client)
//	if err := store.Ping(ctx); err != nil { ... }
package redis
