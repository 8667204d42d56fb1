// Package log defines the structured logging interface and typed fields used
// across lib-iterate.
//
// Adapters (such as the zap package) implement Logger so library internals can
// stay backend-agnostic. The controller defaults to the no-op logger.
package log
