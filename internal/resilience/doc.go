// Package resilience groups the fault tolerance building blocks used for
// inter-service calls.
//
// The breaker subpackage implements a per-service circuit state machine
// with a consecutive-failure threshold, a windowed error-rate trip, and a
// single half-open probe slot. The executor subpackage wraps HTTP calls
// with retries, exponential backoff with jitter, per-attempt timeouts, and
// optional fallbacks, reporting every outcome back to the breaker.
package resilience
