// Package logx configures tweetbot's structured logging.
//
// It is a thin wrapper (logx.Logger) over zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional operator sink (min-level + rate limiting), used to push
//     warnings such as failed publishes to a Telegram chat
package logx
