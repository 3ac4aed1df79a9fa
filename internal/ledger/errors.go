// Package ledger owns the transactional reservation core: pending holds,
// confirmed sales, and the capacity accounting between them. The sentinel
// errors below are the contract with callers; handlers translate them into
// distinct HTTP responses instead of a generic failure.
package ledger

import "errors"

// ErrSoldOut is the expected rejection when a period's capacity is fully
// committed (confirmed sales plus unexpired pending holds). Callers present
// a "try again shortly" message; this is not a system error.
var ErrSoldOut = errors.New("sold out for the current period")

// ErrScheduleNotConfigured is returned when no active day schedule exists for
// the requested venue and day. Surfaces as "not currently available".
var ErrScheduleNotConfigured = errors.New("no active schedule for venue and day")

// ErrInconsistentState is returned when a confirmation arrives for a session
// with neither a pending hold nor a confirmed sale. It is logged loudly and
// retained in the audit trail but must not crash the reconciliation pipeline.
var ErrInconsistentState = errors.New("no hold or sale found for session")
