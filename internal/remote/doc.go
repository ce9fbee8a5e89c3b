// Package remote persists learning data to a remote document store and
// reads it back. It contains the typed (de)serialization boundary for
// remote documents, an HTTP client for the store's REST API, and the
// sync service that submits write-behind batches with bounded
// concurrency and degraded-fallback reads.
package remote
