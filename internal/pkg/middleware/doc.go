// Package middleware provides HTTP middleware for the chunking server.
//
// Available middleware:
//   - RateLimiter: per-client token bucket limiting, configured in
//     requests per minute
//
// Usage:
//
//	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerMinute: 600})
//	defer rl.Close()
//	handler = rl.Middleware(handler)
package middleware
