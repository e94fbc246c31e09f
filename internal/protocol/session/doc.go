// Package session owns the ascmd request/response discipline.
//
// Ownership boundary:
// - protocol version negotiation
// - one request line, one reply frame per command
// - error taxonomy (Classify, IsFatal)
// - reconnect backoff helpers for callers
//
// A Session never retries or resynchronizes. Callers cancel a
// blocked call by closing the transport.
package session
