// Package core provides the business logic for cleaning student-record
// datasets.
//
// It is independent of any transport: the web server, the CLI and tests all
// drive the same [Service] and [Pipeline].
//
// # Pipeline
//
// A run moves through fixed stages:
//
//	PROFILE -> DETECT -> PLAN -> EXECUTE -> VALIDATE -> DONE
//
// PROFILE snapshots the input and builds a [Profile]. DETECT and PLAN ask an
// [Advisor] for issues and a remediation plan; their output is reported but
// never changes EXECUTE. EXECUTE applies the operation sequence through an
// [Engine], and VALIDATE compares the snapshot with the cleaned copy. A nil
// or column-less dataset aborts the run with [ErrNoDataset].
//
// # Engine
//
// Every engine operation appends exactly one [CleaningAction], whether it
// applied, was skipped (missing column, wrong type, unbound field) or failed.
// Operations never panic out of the engine and the action log is
// append-only.
//
// # Canonical Fields
//
// [AliasTable] binds source column names to canonical fields such as
// attendance_percent or gpa. Each field has a [FieldRule] describing how
// NormalizeField coerces it: word numbers, numeric bounds or a categorical
// mapping.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - DATA001-DATA004: Dataset errors (missing, empty, mismatched)
//   - CLN001-CLN005: Cleaning errors (column, type, bounds, strategy)
//   - FILE001-FILE004: File errors (size, format, compression)
//   - RUN001-RUN004: Run errors (busy, expired, cancelled, timeout)
//   - ADV001-ADV003: Advisor configuration and API errors
//   - DB001-DB004: Database source errors
package core
