// Package audit defines the audit event model and the sinks that receive
// dispatched events.
//
// # Architecture boundaries
//
// This package owns the Event shape and Sink contract. Dispatch (buffering,
// drop accounting, draining on close) lives in the root package's
// dispatcher, which is the only writer.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling package.
//   - Block an Emit call beyond ctx cancellation.
package audit
