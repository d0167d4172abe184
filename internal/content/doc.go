// Package content loads the ordered, immutable message list the bot cycles
// through, and optionally watches the file for replacement lists.
package content
