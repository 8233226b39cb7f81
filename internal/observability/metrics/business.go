package metrics

import (
	"strconv"
	"time"
)

// RecordUpstreamRequest records one outbound request made on behalf of a source.
// A zero statusCode means the request never produced a response.
func RecordUpstreamRequest(source string, statusCode int, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(source, StatusClass(statusCode)).Inc()
	UpstreamRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordUpstreamRejected records a request the circuit breaker refused to send.
func RecordUpstreamRejected(source string) {
	UpstreamRequestsTotal.WithLabelValues(source, "rejected").Inc()
}

// StatusClass maps an HTTP status code to its class label ("2xx", "5xx", ...).
// Zero maps to "error".
func StatusClass(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "error"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// RecordPipelineRun records the outcome of one fetch pipeline run.
// Result is "success" or the failure kind name.
func RecordPipelineRun(source, result string, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(source, result).Inc()
	PipelineRunDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordAuthentication records an authenticate call.
func RecordAuthentication(source string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	AuthenticationsTotal.WithLabelValues(source, result).Inc()
}

// UpdateFeedEntries records the entry count of the latest feed for a source.
func UpdateFeedEntries(source string, count int) {
	FeedEntries.WithLabelValues(source).Set(float64(count))
}

// UpdateSourcesTotal updates the number of configured sources.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordFeedCacheLookup records a feed cache hit or miss.
func RecordFeedCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	FeedCacheLookupsTotal.WithLabelValues(result).Inc()
}
