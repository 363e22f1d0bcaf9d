// Package harness runs alarm lifecycle scenarios against a real store,
// provider and scheduler.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	start: 2026-10-14T07:00:00Z
//	snooze_minutes: 10
//	setup:
//	  - time: "07:30"
//	    days: workdays
//	    enabled: true
//	flow:
//	  - do: set_state
//	    instance: 1
//	    state: FIRED
//	    expect:
//	      outcome: invalid_transition
//	  - do: set_state
//	    instance: 1
//	    state: NOTIFICATION
//	  - advance: 20m
//	    do: dismiss
//	    instance: 1
//	    expect:
//	      outcome: predismissed
//	assertions:
//	  - type: change_contains
//	    uri: content://deskclock/instances/1
//	    op: update
//	  - type: final_state
//	    table: alarm_instances
//	    where: { _id: 2 }
//	    expect: { alarm_state: SILENT }
//
// Setup alarms get ids 1, 2, ... in order, and enabled ones get their first
// instance scheduled after start. Every flow step is recorded in the trace,
// followed by the change notifications it caused.
//
// # Assertion Types
//
//   - step_outcome: the step at index step ended with outcome
//   - change_contains: a change with uri (and op, if given) was published
//   - change_order: the given uris were first published in this order
//   - change_count: exactly count changes with uri (and op) were published
//   - final_state: exactly one row of table matches where and has the
//     expected column values, or none does when absent is set
//
// # Deterministic Testing
//
// The clock starts at the scenario's start time and only moves on advance
// steps. Change ids come from a counter. Each run uses a fresh in-memory
// database, so traces are identical across runs and can be compared with
// golden files.
package harness
