// Package writer records the live stream into TimescaleDB.
//
// A Recorder listens on the watchlist subscriptions and pushes trades and
// bars into buffers; a TradeWriter and a BarWriter drain them in batches.
// Writes are append-only (ON CONFLICT DO NOTHING), so replays after a
// reconnect are harmless.
package writer
