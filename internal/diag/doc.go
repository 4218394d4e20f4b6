// Package diag defines the diagnostic model shared by the rule engine, the
// symbol checks, the pipeline and every output adapter.
//
// # Purpose
//
//   - Provide deterministic, serialisable values describing findings produced
//     by rules evaluated over a markup tree and by cross-reference checks.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting layers.
//   - Model fix suggestions as line replacements carrying a safety class that
//     the fix engine and the editor server honour.
//
// # Scope
//
// Package diag does not format, perform IO or know about CLI flags. Rendering
// lives in internal/diagfmt and internal/lsp, application of fixes in
// internal/fix, orchestration in internal/lint.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - RuleID – stable string id ("component-requires-guid", "invalid-reference").
//   - Severity – Info, Warning or Error.
//   - Category – coarse grouping used by --category filters.
//   - Message – short and actionable, already expanded from the rule template.
//   - Location – file, 1-based line and byte column, length of the start tag.
//   - Fix – optional replacement of the diagnostic's source line.
//   - Related – secondary locations ("first defined here").
//
// # Fix safety
//
//   - SafetySafe – meaning preserving; `winter fix` applies it by default.
//   - SafetyUnsafe – may change behaviour; applied only with --unsafe.
//   - SafetyDisplay – shown to the user, never applied.
//
// Diagnostics are pure values. Once created they are filtered and sorted but
// never mutated, so the pipeline can cache them and adapters can re-encode
// them byte-for-byte.
package diag
