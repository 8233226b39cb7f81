// Package http holds the middleware and shared handlers of the feed server:
// request logging, panic recovery, per-client rate limiting, input checks,
// request metrics and the health endpoint. Feed routes live in the feed
// subpackage.
package http
