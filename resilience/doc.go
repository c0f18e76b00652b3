// Package resilience keeps long paginated pulls alive against an unreliable
// network.
//
//   - Executor: bounded retries with a fixed delay and typed error matching
//   - RateLimiter: token bucket pacing of page requests
//
// Usage:
//
//	ex := resilience.Executor{MaxTries: 3, Delay: 5 * time.Second, RetryIf: httpclient.IsRetryable}
//	page, err := resilience.Do(ctx, ex, func() (*Page, error) {
//	    return fetch(ctx, next)
//	})
package resilience
