// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket frames, codec rejections and listener deliveries
//   - Connection state, reconnect attempts and auth failures
//   - Realtime feed flush rates
//   - Writer row counts and batch errors
package metrics
