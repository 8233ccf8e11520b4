package driver

import (
	"encoding/json"
	"fmt"

	"ebb/internal/diag"
	"ebb/internal/observ"
	"ebb/internal/source"
)

// timingPayload is the machine-readable form of one timing report. It rides
// in a note of the ObsTimings diagnostic so every output format carries it.
type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic records a timing report as an info diagnostic
// anchored at the analyzed file. The entry must land even when the bag is
// already at capacity, so a full bag grows by one.
func appendTimingDiagnostic(bag *diag.Bag, anchor source.Span, payload timingPayload) {
	if bag == nil {
		return
	}
	if payload.Kind == "" {
		payload.Kind = "pipeline"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  msg,
		Primary:  anchor,
		Notes: []diag.Note{
			{Msg: string(data)},
		},
	}

	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
