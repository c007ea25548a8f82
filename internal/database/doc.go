// Package database provides the TimescaleDB connection pool and schema used
// by the recorder.
//
// Tables:
//   - stock_trades: live trades (hypertable on ts)
//   - stock_bars: live per-second and per-minute bars (hypertable on ts)
package database
