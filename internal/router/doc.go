// Package router turns vendor frames into typed messages and routes them to
// the listeners that asked for them.
//
// It holds:
//   - Decode, the frame codec (all-or-nothing per frame)
//   - EncodeAction, for outbound auth/subscribe/unsubscribe frames
//   - Registry, the desired-subscription set plus per-subscription listeners,
//     with snapshot-then-iterate Dispatch
//   - GrowableBuffer, the queue between listeners and batch writers
//
// The package does no I/O and never sees connection state; gating on
// authentication is the connection manager's job.
package router
