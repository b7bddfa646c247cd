// Package ws implements the long-lived edgeX WebSocket session.
//
// A Session:
//   - Owns one physical connection per logical channel (public or private)
//   - Authenticates private handshakes with the same canonicalizer and
//     signer as the REST client
//   - Runs a keepalive loop and a dispatch loop per connection
//   - Reconnects with exponential backoff and replays subscriptions
//   - Routes inbound frames to per-type handlers and raw hooks
package ws
