// Package bot holds the posting cursor and the tick handler.
//
// One tick: pick the message at the cursor, make it byte-unique, publish it,
// and only on success advance the cursor modulo the list length and persist
// it. Ticks are serialized; failures never escape the tick boundary.
package bot
