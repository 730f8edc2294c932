// Package cache is the TTL-keyed response store used by the resilient
// executor.
//
// Entries are keyed by request identity (verb, address and a deterministic
// hash of the body) and expire lazily: an entry is absent from the moment its
// expiry instant is reached, whether or not it has been purged yet.
package cache
