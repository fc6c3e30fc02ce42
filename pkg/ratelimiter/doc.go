// Package ratelimiter implements token bucket rate limiting with in-memory
// and Redis stores and an HTTP middleware.
//
// The service limits how often a client may open deposit checkouts, since
// every start can create a customer and a session at the payment
// processor:
//
//	var store ratelimiter.Store = ratelimiter.NewMemoryStore()
//	if redisClient != nil {
//		store = ratelimiter.NewRedisStore(redisClient, ratelimiter.WithKeyPrefix("intakebilling:rl"))
//	}
//
//	bucket, err := ratelimiter.NewBucket(store, cfg)
//	if err != nil {
//		return err
//	}
//
//	limit := ratelimiter.Middleware(bucket,
//		ratelimiter.Prefix("checkout", ips.KeyFunc),
//		ratelimiter.WithFailOpen(),
//	)
//
// Both stores apply the same rule: a bucket starts full at Capacity, gains
// RefillRate tokens for every whole RefillInterval since its last refill and
// loses the requested tokens on every call. A negative balance means denied;
// denied calls still count, so a client hammering the endpoint stays
// limited. RedisStore runs the rule as a Lua script, so concurrent
// instances see one balance per key.
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every limited response and Retry-After on denials.
package ratelimiter
