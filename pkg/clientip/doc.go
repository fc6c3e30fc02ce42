// Package clientip resolves the client IP address of an HTTP request.
//
// The service uses it to key the checkout rate limiter. Forwarding headers
// are spoofable, so a Resolver trusts only the headers it is given, which
// should be the ones the deployment's proxy sets:
//
//	ips := clientip.New("CF-Connecting-IP")
//	r.Use(ips.Middleware)
//	limit := ratelimiter.Middleware(bucket, ips.KeyFunc)
package clientip
