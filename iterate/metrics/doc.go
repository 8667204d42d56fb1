// Package metrics exposes retry loop activity as Prometheus metrics.
//
// Listener implements iterate.Listener; register it on a controller with
// iterate.WithListener to count attempts and finished runs and to observe
// applied backoff delays.
package metrics
