// Package cache keeps a single active experiment in memory and in sync with
// its file on disk.
//
// Mutations mark the active experiment dirty and arm a deferred-write timer
// so rapid edits collapse into one write. The timer writes the schema as of
// the last reported change; explicit writes take the live schema. Switching to another experiment
// flushes a dirty active experiment first. Files written by older schema
// versions are upgraded on load; files from a newer major version are never
// installed, and files from a newer minor version are never overwritten.
//
// Recoverable failures (I/O, decoding, versions that are too new) are not
// returned. They are delivered to a types.FailureListener, synchronously and
// exactly once per failing attempt, before the triggering call returns.
package cache
