// Package model defines the market-data types shared by the stream, the
// realtime feeds, the REST client and the writers.
//
// Conventions:
//   - Prices and sizes: float64 as published by the vendor
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Symbols: upper-case vendor tickers (e.g. "AAPL", "BRK.A")
package model
