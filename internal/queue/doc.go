// Package queue persists extraction jobs in SQLite and exposes the atomic
// operations the job coordinator builds on.
//
// The Store manages database connections, schema initialization, owner-scoped
// id-prefix lookup, compare-and-set status transitions, cancellation flags,
// heartbeat tracking, interrupted-job recovery, and retention sweeps. Terminal
// statuses (finished, failed, cancelled) are never overwritten: every
// transition is guarded by the set of statuses it may leave.
//
// The database is treated as transient storage for in-flight and recently
// completed jobs rather than a long-term archive. Schema changes bump the
// version in schema.go; operators delete the database to adopt the new schema.
package queue
