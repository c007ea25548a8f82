// Package connection owns the process-wide vendor WebSocket.
//
// The Manager:
//   - Keeps exactly one socket, created through a ClientFactory
//   - Authenticates in-band with {"action":"auth","params":<key>}
//   - Replays every desired subscription after auth_success
//   - Reconnects with linear backoff (base × attempt) up to a fixed budget
//   - Gates listener dispatch on the authenticated state
//   - Notifies state handlers on every transition, and immediately on registration
package connection
