// Package api exposes the harness HTTP surface: engine instance CRUD,
// event ingestion, query routing, and training job control. Handlers
// translate between HTTP and the component layer; every non-2xx
// response carries the ErrorResponse envelope.
package api
