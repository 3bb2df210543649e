// Package job tracks the lifecycle of engine training jobs: durable
// records in a store, live cancellation handles in a registry, and a
// manager that keeps the two in step.
//
// # Job Records
//
// A [Record] is the durable bookkeeping row for one job. It carries the
// owning engine id, a free-text comment, and progresses through a status
// machine:
//
//	queued → executing → successful
//	queued → executing → failed
//	queued → executing → cancelled
//	queued → failed
//	queued → cancelled
//
// "expired" is a read-time overlay, never stored: a record still queued
// or executing past its ExpireAt is reported as expired while the stored
// value stays put until a terminal write lands.
//
// Fields of note:
//   - Comment: free-text annotation, immutable after creation
//   - CompletedAt: stamped once, at the terminal transition
//   - ExpireAt: CreatedAt plus the configured expiration, set once
//
// # Manager
//
// [Manager] is the facade the rest of harness talks to. Pure bookkeeping
// writes (insert, status updates, settling) run in the background with
// retries; their failures are logged, not returned, and the live registry
// keeps the job cancellable and reportable for the rest of the process
// lifetime. Cancellation is the exception: [Manager.CancelJob] waits for
// the durable cancelled write before returning.
//
//	m := job.NewManager(st, job.WithExecutionCanceller(spark))
//	desc := m.AddJob(ctx, "movies", job.WithComment("nightly train"))
//	...
//	m.FinishJob(ctx, desc.JobID)
//
// # Registry
//
// [Registry] holds the live (Cancellable, Description) pairs per engine.
// It is purely a capability cache: the durable store stays authoritative
// for status and for what jobs exist.
package job
