// Package authclient owns the client-side authentication session lifecycle
// for applications talking to a remote authentication API: login (password,
// Google credential, admin), registration, logout, periodic session liveness
// verification, silent token refresh, and snapshot persistence across
// restarts.
//
// One [Manager] is built per application run through [Builder.Build] and
// passed by reference to whatever owns the consumer tree; it is the single
// authoritative copy of the session. Manager methods are safe to call from
// multiple goroutines after Build.
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Manager], [Builder],
// [Config], and value types (State, SessionEvent, MetricsSnapshot). The wire
// protocol lives in transport/, durable snapshot handling in snapshot/, and
// event plumbing under internal/. None of them reach back into this
// package.
//
// # What this package must NOT do
//
//   - Treat the persisted snapshot as authoritative over a live remote
//     answer. The snapshot is a restart cache, always safe to drop.
//   - Invalidate the session on a transient failure. Only an unauthorized
//     response from the remote API ends a session.
//   - Leak background timers. Both pollers are cancelled together on
//     logout, invalidation, and [Manager.Close].
package authclient
