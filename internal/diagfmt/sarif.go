package diagfmt

import (
	"encoding/json"
	"io"

	"ebb/internal/diag"
	"ebb/internal/source"
)

// SARIF 2.1.0 output. Only the fields consumers actually read are emitted;
// the schema reference pins the version.

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID           string          `json:"ruleId"`
	RuleIndex        int             `json:"ruleIndex"`
	Level            string          `json:"level"`
	Message          sarifMessage    `json:"message"`
	Locations        []sarifLocation `json:"locations,omitempty"`
	RelatedLocations []sarifLocation `json:"relatedLocations,omitempty"`
	Fixes            []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine,omitempty"`
	StartColumn uint32 `json:"startColumn,omitempty"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
	ByteOffset  uint32 `json:"byteOffset"`
	ByteLength  uint32 `json:"byteLength"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion           `json:"deletedRegion"`
	InsertedContent *sarifArtifactContent `json:"insertedContent,omitempty"`
}

type sarifArtifactContent struct {
	Text string `json:"text"`
}

// Sarif renders the bag as a single-run SARIF 2.1.0 log. Rules are collected
// from the codes present in the bag, in first-appearance order.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	items := bag.Items()

	ruleIndex := make(map[diag.Code]int)
	var rules []sarifRule
	results := make([]sarifResult, 0, len(items))

	for i := range items {
		d := &items[i]
		idx, ok := ruleIndex[d.Code]
		if !ok {
			idx = len(rules)
			ruleIndex[d.Code] = idx
			rules = append(rules, sarifRule{
				ID:               d.Code.ID(),
				ShortDescription: sarifMessage{Text: d.Code.Title()},
			})
		}

		res := sarifResult{
			RuleID:    d.Code.ID(),
			RuleIndex: idx,
			Level:     sarifLevel(d.Severity),
			Message:   sarifMessage{Text: d.Message},
			Locations: []sarifLocation{sarifLoc(fs, d.Primary, nil)},
		}
		for _, note := range d.Notes {
			if note.Span == (source.Span{}) {
				continue
			}
			msg := sarifMessage{Text: note.Msg}
			res.RelatedLocations = append(res.RelatedLocations, sarifLoc(fs, note.Span, &msg))
		}
		for _, fix := range d.Fixes {
			res.Fixes = append(res.Fixes, sarifFixFrom(fs, fix))
		}
		results = append(results, res)
	}

	name := meta.ToolName
	if name == "" {
		name = "ebb"
	}

	log := sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    name,
				Version: meta.ToolVersion,
				Rules:   rules,
			}},
			Invocations: sarifInvocations(meta),
			Results:     results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifInvocations(meta SarifRunMeta) []sarifInvocation {
	if len(meta.InvocationArgs) == 0 {
		return nil
	}
	return []sarifInvocation{{
		Arguments:           meta.InvocationArgs,
		ExecutionSuccessful: true,
	}}
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

func sarifLoc(fs *source.FileSet, span source.Span, msg *sarifMessage) sarifLocation {
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: sarifURI(fs, span.File)},
			Region:           sarifRegionFor(fs, span),
		},
		Message: msg,
	}
}

func sarifURI(fs *source.FileSet, id source.FileID) string {
	f := fs.Get(id)
	if f == nil {
		return ""
	}
	return f.FormatPath("relative", fs.BaseDir())
}

func sarifRegionFor(fs *source.FileSet, span source.Span) sarifRegion {
	var length uint32
	if span.End > span.Start {
		length = span.End - span.Start
	}
	region := sarifRegion{ByteOffset: span.Start, ByteLength: length}
	if f := fs.Get(span.File); f != nil {
		start, end := fs.Resolve(span)
		region.StartLine = start.Line
		region.StartColumn = start.Col
		region.EndLine = end.Line
		region.EndColumn = end.Col
	}
	return region
}

// sarifFixFrom groups a fix's edits into per-artifact change sets, keeping
// first-appearance file order so output stays deterministic.
func sarifFixFrom(fs *source.FileSet, fix diag.Fix) sarifFix {
	out := sarifFix{Description: sarifMessage{Text: fix.Title}}
	idx := make(map[source.FileID]int)
	for _, edit := range fix.Edits {
		i, ok := idx[edit.Span.File]
		if !ok {
			i = len(out.ArtifactChanges)
			idx[edit.Span.File] = i
			out.ArtifactChanges = append(out.ArtifactChanges, sarifArtifactChange{
				ArtifactLocation: sarifArtifactLocation{URI: sarifURI(fs, edit.Span.File)},
			})
		}
		repl := sarifReplacement{DeletedRegion: sarifRegionFor(fs, edit.Span)}
		if edit.NewText != "" {
			repl.InsertedContent = &sarifArtifactContent{Text: edit.NewText}
		}
		out.ArtifactChanges[i].Replacements = append(out.ArtifactChanges[i].Replacements, repl)
	}
	return out
}
