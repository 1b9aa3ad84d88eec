// Package diag defines the diagnostic model shared by conversion, merging and
// generator runs.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for findings produced while
//     turning extracted declarations into a generator input and while driving
//     generators.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does not format or print anything. Rendering lives in
// internal/diagfmt.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short and actionable.
//   - Primary: the source.LocationID the finding is about. It may be empty for
//     findings that are not tied to a declaration, such as a generator that
//     exited non-zero.
//   - Subject: the declaration or generator name, when known.
//   - Notes: secondary locations with their own text.
//
// # Reporters
//
// Producers emit through the Reporter interface. BagReporter appends into a
// Bag, DedupReporter drops repeats. Bag is not safe for concurrent use; parallel
// producers fill one Bag each and Merge them in a fixed order so the result
// does not depend on scheduling.
package diag
