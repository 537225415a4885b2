// Package resilience guards calls to external platform APIs.
//
// It provides two independent primitives:
//
//   - BreakerRegistry: one circuit breaker per upstream key. A breaker
//     trips Open after a configured number of failures, refuses calls
//     until a reset timeout elapses, then admits a single probe in
//     HalfOpen. One probe failure reopens it; enough probe successes
//     close it again.
//
//   - Retrier: bounded retries with decorrelated exponential backoff for
//     transient failures.
//
// The two are deliberately orthogonal. Callers check breaker permission
// first, run the retried operation, and report the final outcome back to
// the breaker themselves:
//
//	if !breakers.Allow("tiktok_api") {
//		return nil, nil // degrade to empty
//	}
//	err := retrier.Do(ctx, "fetch_posts", fetch)
//	if err != nil {
//		breakers.RecordFailure("tiktok_api")
//		return nil, err
//	}
//	breakers.RecordSuccess("tiktok_api")
//
// This keeps a retried burst of failures counting as one breaker failure,
// so the breaker measures upstream health rather than retry volume.
package resilience
