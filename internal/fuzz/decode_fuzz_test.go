package fuzztests

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"ebb/internal/birfile"
	"ebb/internal/diag"
	"ebb/internal/liveness"
	"ebb/internal/source"
)

const maxFuzzInput = 1 << 16 // 64 KiB

// analysisTimeout is the maximum time allowed for analyzing a single input.
// If analysis takes longer, it indicates a potential infinite loop.
const analysisTimeout = 5 * time.Second

func FuzzSnapshotDecode(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(_ *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		fs := source.NewFileSet()
		_, _, _ = birfile.Decode(fs, "fuzz.bir.json", input)
	})
}

// FuzzSnapshotAnalysis runs every document the decoder accepts through the
// liveness pass. LivInternal marks a recovered panic inside the solver; any
// input that produces one is a bug, not a bad document.
func FuzzSnapshotAnalysis(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		fs := source.NewFileSet()
		file, bag, err := birfile.Decode(fs, "fuzz.bir.json", input)
		if err != nil || file == nil || bag.HasErrors() {
			return
		}

		sink := diag.NewBag(128)
		res := liveness.Check(file, fs, liveness.Options{
			Reporter: diag.BagReporter{Bag: sink},
		})
		if res == nil {
			t.Fatal("analysis returned no result for an accepted snapshot")
		}
		for _, d := range sink.Items() {
			if d.Code == diag.LivInternal {
				t.Fatalf("analysis panicked on an accepted snapshot: %s", d.Message)
			}
		}
	})
}

// FuzzAnalysisNoHang tests that the pipeline terminates on any input. It uses
// a timeout to detect infinite loops that could be caused by malformed node
// graphs or edge cases in the fixpoint solver.
func FuzzAnalysisNoHang(f *testing.F) {
	addCorpusSeeds(f)

	// Documents whose node graphs are not trees; validation must reject them
	// before any recursive walk runs.
	f.Add([]byte(`{"schema":1,"path":"a.sg","bodies":[{"name":"f","kind":"fn","span":[0,4],"root":1,"exprs":[{"kind":"block","span":[0,4],"stmts":[],"tail":1}]}]}`))
	f.Add([]byte(`{"schema":1,"path":"a.sg","bodies":[{"name":"f","kind":"fn","span":[0,4],"root":1,"exprs":[{"kind":"block","span":[0,4],"stmts":[],"tail":2},{"kind":"block","span":[0,4],"stmts":[],"tail":1}]}]}`))
	f.Add([]byte(`{"schema":1,"path":"a.sg","bodies":[{"name":"f","kind":"fn","span":[0,4],"root":1,"exprs":[{"kind":"loop","span":[0,4],"body":1}]}]}`))
	// An or-pattern cycle no root references: every slot carries a single
	// inbound reference, so the document is accepted and the binding checks
	// must not walk into it.
	f.Add([]byte(`{"schema":1,"path":"a.sg","bodies":[{"name":"f","kind":"fn","span":[0,4],"root":1,"exprs":[{"kind":"lit","span":[0,1],"text":"0"}],"pats":[{"kind":"or","span":[0,2],"alts":[2,3]},{"kind":"or","span":[0,2],"alts":[1,4]},{"kind":"wild","span":[0,1]},{"kind":"wild","span":[1,2]}]}]}`))
	// Deep but well-formed nesting; stays under maxFuzzInput so the clamp
	// does not cut the document mid-token.
	f.Add(deeplyNestedDoc(1000))

	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)

			fs := source.NewFileSet()
			file, bag, err := birfile.Decode(fs, "fuzz.bir.json", input)
			if err != nil || file == nil || bag.HasErrors() {
				return
			}

			sink := diag.NewBag(128)
			_ = liveness.Check(file, fs, liveness.Options{
				Reporter: diag.BagReporter{Bag: sink},
			})
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("analysis hang detected: run took longer than %v\ninput (%d bytes): %q",
				analysisTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// deeplyNestedDoc builds a document with a unary chain of the given depth.
func deeplyNestedDoc(depth int) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"schema":1,"path":"deep.sg","bodies":[{"name":"f","kind":"fn","span":[0,4],"root":1,"exprs":[`)
	for i := 1; i <= depth; i++ {
		if i > 1 {
			buf.WriteByte(',')
		}
		if i == depth {
			buf.WriteString(`{"kind":"lit","span":[0,1],"text":"0"}`)
			continue
		}
		fmt.Fprintf(&buf, `{"kind":"unary","span":[0,2],"op":"-","operand":%d}`, i+1)
	}
	buf.WriteString(`]}]}`)
	return buf.Bytes()
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen], []byte("...")...)
}
