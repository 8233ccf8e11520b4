package diag

import (
	"fmt"
)

// Code is a compact numeric diagnostic identifier. Codes are grouped into
// thousand-wide ranges per producer; ID() renders the stable string form.
type Code uint16

const (
	UnknownCode Code = 0

	// Snapshot document problems (loader / validator).
	DocInfo              Code = 1000
	DocBadSchema         Code = 1001
	DocBadBodyKind       Code = 1002
	DocBadCaptureMode    Code = 1003
	DocBadNodeKind       Code = 1004
	DocNodeOutOfRange    Code = 1005
	DocUnknownBinding    Code = 1006
	DocBadBreakTarget    Code = 1007
	DocOrPatternBindings Code = 1008
	DocBadFlagTarget     Code = 1009
	DocMissingRoot       Code = 1010
	DocDuplicateBinding  Code = 1011
	DocBadBodyRef        Code = 1012
	DocNodeReused        Code = 1013

	// Liveness findings.
	LivInfo           Code = 3000
	LivUnusedVariable Code = 3001
	LivUnusedParam    Code = 3002
	LivDeadAssign     Code = 3003
	LivUnusedCapture  Code = 3004
	LivInternal       Code = 3005

	// I/O.
	IOLoadFileError Code = 4001

	// Project configuration.
	PrjInfo        Code = 5000
	PrjBadManifest Code = 5001
	PrjUnknownKey  Code = 5002
	PrjBadValue    Code = 5003

	// Observability.
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown problem",

	DocInfo:              "Snapshot information",
	DocBadSchema:         "Unsupported snapshot schema version",
	DocBadBodyKind:       "Unknown body kind",
	DocBadCaptureMode:    "Unknown capture mode",
	DocBadNodeKind:       "Unknown node kind",
	DocNodeOutOfRange:    "Node reference out of range",
	DocUnknownBinding:    "Reference to undeclared binding",
	DocBadBreakTarget:    "break/continue target is not a loop or labeled block",
	DocOrPatternBindings: "Or-pattern alternatives bind different names",
	DocBadFlagTarget:     "Flagged expression has the wrong kind",
	DocMissingRoot:       "Body has no root expression",
	DocDuplicateBinding:  "Binding declared by more than one pattern",
	DocBadBodyRef:        "Closure references an unknown body",
	DocNodeReused:        "Node referenced by more than one parent",

	LivInfo:           "Liveness information",
	LivUnusedVariable: "Unused variable",
	LivUnusedParam:    "Parameter value never read",
	LivDeadAssign:     "Assigned value never read",
	LivUnusedCapture:  "Captured value never read",
	LivInternal:       "Internal analysis failure",

	IOLoadFileError: "I/O load file error",

	PrjInfo:        "Project information",
	PrjBadManifest: "Malformed ebb.toml",
	PrjUnknownKey:  "Unknown key in ebb.toml",
	PrjBadValue:    "Invalid value in ebb.toml",

	ObsInfo:    "Observability information",
	ObsTimings: "Phase timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DOC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LIV%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
