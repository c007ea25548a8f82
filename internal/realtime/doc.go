// Package realtime turns the shared vendor stream into bounded, throttled
// state for charts, price panels and multi-symbol comparisons.
//
// Each feed attaches one listener to a connection.Manager, queues decoded
// messages in a Batcher and folds them into its state at most once per
// flush window. Series are capped at Config.MaxPoints and kept sorted by
// timestamp.
package realtime
