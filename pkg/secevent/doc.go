// Package secevent is the append-only audit and event log for authsec.
//
// Three record kinds flow through it: raw AuthenticationEvents written by
// the login flow on every attempt, SecurityEvents derived from those by the
// anomaly detector (or reported manually), and AuditLogEntries for
// administrative traceability. Events are immutable once written.
//
// Writes go through a Sink chain: a RepositorySink with a sub-second I/O
// timeout, wrapped by a FallbackSink that degrades to a ConsoleSink when the
// backing store is unavailable. Events degrade, they do not drop, and the
// authentication critical path never blocks on the audit store.
//
// The read side is bounded: detectors scan a recent window via
// CountFailuresByIP and LastLoginSuccess, and the admin dashboard pages
// through filtered listings ordered newest-first.
package secevent
