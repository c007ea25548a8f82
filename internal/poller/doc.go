// Package poller implements the price snapshot poller.
//
// The poller:
//   - Fetches each watchlist symbol's snapshot and recent trades over REST
//   - Runs one cycle at start, then one per interval
//   - Bounds concurrency so the vendor rate limit is respected
//   - Hands results to the price feeds, which keep whichever update is newer
package poller
