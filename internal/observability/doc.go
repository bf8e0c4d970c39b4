// Package observability provides structured logging and Prometheus metrics
// for the chatbot server.
//
// This package implements:
//   - Logger construction from LOG_LEVEL/LOG_FORMAT (zap-based)
//   - Request ID propagation into log fields
//   - HTTP request metrics and the /metrics handler
package observability
