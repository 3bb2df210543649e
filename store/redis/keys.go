package redis

// Redis key naming conventions for harness data.
// All keys are prefixed with "harness:" to avoid collisions.

const keyPrefix = "harness:"

// ── Job keys ──

// jobKey returns the key for a job record: harness:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// engineJobsKey returns the Sorted Set of an engine's job ids, scored by
// creation time: harness:engine_jobs:{engineId}
func engineJobsKey(engineID string) string { return keyPrefix + "engine_jobs:" + engineID }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"

// ── Engine keys ──

// engineKey returns the key for an engine instance: harness:engine:{id}
func engineKey(id string) string { return keyPrefix + "engine:" + id }

// engineIDsKey is the Set tracking all engine IDs for enumeration.
const engineIDsKey = keyPrefix + "engine_ids"

// ── Event keys ──

// eventKey returns the key for an event record: harness:event:{id}
func eventKey(id string) string { return keyPrefix + "event:" + id }

// engineEventsKey returns the Sorted Set of an engine's event ids, scored
// by event time: harness:engine_events:{engineId}
func engineEventsKey(engineID string) string { return keyPrefix + "engine_events:" + engineID }
