// Package resilience holds the fault tolerance patterns feedhub applies to
// upstream calls.
//
// Every source gets its own circuit breaker so one failing site cannot slow
// down the others. Failed requests are not retried here: a pipeline run
// recovers only from an expired session, and it does so in its own state
// machine.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SourceConfig("pixiv"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callUpstream()
//	})
package resilience
