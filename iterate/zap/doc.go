// Package zap adapts go.uber.org/zap to the lib-iterate log.Logger interface.
//
// When the context carries an active OpenTelemetry span, trace_id and span_id
// are appended to every entry so retry diagnostics correlate with traces.
package zap
