// Package snapshot persists the session restart cache: the serialized user
// record (plus bearer token and auxiliary payload) written under one fixed
// key whenever a session is established or updated, and removed on logout
// or confirmed invalidation.
//
// # Design
//
// The snapshot is a cache, never a second source of truth. Stores therefore
// favor dropping data over preserving it: a payload that fails to decode or
// carries an unknown schema version surfaces as [ErrCorrupt] and the caller
// discards it. Two stores are provided: [FileStore] for single-machine
// embedders and [RedisStore] for deployments that keep client state on a
// shared cache host.
//
// # What this package must NOT do
//
//   - Interpret session validity. It moves bytes; the Manager decides what
//     they mean.
//   - Hold more than the single fixed key per store.
package snapshot
