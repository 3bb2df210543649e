// Package harness provides a server framework for hosting pluggable
// recommendation engines. It ingests events, answers queries, and tracks
// long-running training jobs from submission to completion.
//
// Harness is designed as a library, not a service. Import it, configure a
// store, register engine factories, and drive training as ordinary Go
// functions. A ready-made HTTP surface and CLI live under api and
// cmd/harness.
//
// # Quick Start
//
//	srv, err := server.Build(
//	    server.WithStore(pgStore),
//	    server.WithFactory("mymodel", mymodel.Factory),
//	)
//
// # Architecture
//
// Harness follows a composable store pattern where each subsystem (job,
// engine, event) defines its own store interface. A single backend
// implements all of them.
//
// Job and event IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers. Engine IDs are caller-chosen strings.
package harness
