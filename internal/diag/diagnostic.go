package diag

import (
	"ebb/internal/source"
)

// Note attaches secondary context to a diagnostic. A zero Span means the
// note is not anchored to source (renderers print it without a location).
type Note struct {
	Span source.Span
	Msg  string
}

// TextEdit is a single replacement inside one file. OldText, when set, is
// verified against the file content before the edit is applied; a mismatch
// means the diagnostic went stale and the fix is skipped.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// FixApplicability says how much trust an automated fix deserves.
type FixApplicability uint8

const (
	// FixApplicabilityAlwaysSafe marks fixes that preserve behavior and can
	// be applied without review.
	FixApplicabilityAlwaysSafe FixApplicability = iota
	// FixApplicabilityMaybeIncorrect marks fixes that are usually right but
	// may change behavior; they require --unsafe or an explicit ID.
	FixApplicabilityMaybeIncorrect
	// FixApplicabilityManual marks fixes kept only for display purposes.
	FixApplicabilityManual
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilityMaybeIncorrect:
		return "maybe-incorrect"
	case FixApplicabilityManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Fix is a suggested source change. ID is stable across runs for the same
// input so `ebb fix --id` can target it; when the producer leaves it empty
// the engine derives one from the code and primary span.
type Fix struct {
	ID            string
	Title         string
	Applicability FixApplicability
	IsPreferred   bool
	Edits         []TextEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}
