// Package backoff computes retry delays: capped exponential growth with a
// ±10% jitter band, plus a context-aware wait helper.
//
// The cap is applied before jitter, so a delay may exceed the configured
// maximum by at most 10%. The random source is injectable so tests can assert
// exact delays.
package backoff
