// Package api provides the vendor REST client.
//
// REST endpoint:
//   - https://api.polygon.io
//
// Used for chart history (aggregates), snapshots, recent trades, ticker
// reference data and technical indicators (RSI, SMA, MACD). Live data
// comes from the stream in package connection.
package api
