// Package domain defines the core business types for the warehouse monitor.
//
// Types in this package are pure value objects with no behavior beyond
// parsing and validation. They are the shared language between the data
// service client, the classification engine, and the dashboard controller.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Parse helpers and predicates are allowed (pure functions on the type)
//   - Constants and enums belong here
package domain
