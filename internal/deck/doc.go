// Package deck implements the HTTP client for a HyperDeck-style broadcast
// deck exposing the /control/api/v1/ REST surface.
//
// The client owns a persistent HTTP session, classifies failures into
// sentinel error kinds, retries transient errors with capped exponential
// backoff, serves idempotent reads through a TTL response cache, and
// invalidates that cache after every transport command regardless of
// outcome. Each constructed client is fully self-contained; multiple decks
// can be driven from one process by constructing one client per endpoint.
package deck
