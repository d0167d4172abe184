// Package storage persists the bot's cursor and a log of successful posts.
//
// Drivers:
//   - "file": the cursor is a plain integer in a text file, replaced
//     atomically on every save; posts are appended to <prefix>.posts.jsonl
//   - "sqlite": a single SQLite database (modernc.org/sqlite, no cgo)
package storage
