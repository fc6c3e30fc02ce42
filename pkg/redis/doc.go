// Package redis connects to Redis with github.com/redis/go-redis/v9.
//
// Redis is optional for this service: it backs the checkout rate limiter
// when several instances run behind a load balancer. With REDIS_URL unset,
// Config.Enabled is false and callers fall back to in-memory state.
//
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		defer client.Close()
//		checks = append(checks, redis.Healthcheck(client))
//	}
package redis
