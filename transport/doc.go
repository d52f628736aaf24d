// Package transport implements the HTTP client for the remote authentication
// API.
//
// # Design
//
// Every call is a single JSON request/response round-trip. Requests carry a
// cookie jar (the primary session transport), an XHR marker header, a unique
// request ID, and optionally a bearer token supplied by the owning Manager
// as a fallback for cookie-unreliable environments. Failures are returned as
// [*APIError] values that preserve the structured server message alongside
// the transport-level cause, so the caller can build one normalized
// user-facing string.
//
// # Architecture boundaries
//
// This package owns the wire format and error classification. It decides
// what counts as unauthorized (HTTP 401) and nothing else; session state
// policy belongs to the root package.
//
// # What this package must NOT do
//
//   - Hold or mutate session state.
//   - Retry requests. Scheduling and retry policy belong to the caller.
//   - Verify bearer token signatures. TokenExpiry reads claims unverified,
//     for scheduling only.
package transport
