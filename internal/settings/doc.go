// Package settings is a typed key-value store for shop configuration.
//
// Values are stored as text tagged with a Kind and decoded on read. Writes
// go through a single writer goroutine: callers wait at most the configured
// write timeout to be admitted and then block until their write commits.
package settings
