// Package store provides SQLite-backed durable storage for alarms and their
// scheduled instances.
//
// The store holds two tables:
//   - alarm_templates: user-configured alarms
//   - alarm_instances: scheduled firings, each pointing back at its template
//
// # Critical Patterns
//
// Cascading delete: alarm_instances.alarm_id references alarm_templates(_id)
// with ON DELETE CASCADE. Deleting a template removes its instances in the
// database, not in Go code.
//
// Name-based decoding: rows are decoded by column name (sqlx struct tags or
// column maps), never by column position.
//
// Single migration transaction: an upgrade from any older schema version
// runs every step in one transaction. A failing step leaves the file as it
// was before Open.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforced after migration (off while tables are rebuilt)
package store
