package verify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/xid"
	"github.com/sarchlab/npusim/core"
)

// Report is the outcome of one simulation run.
type Report struct {
	RunID      xid.ID
	Cycles     int
	Elapsed    time.Duration
	Outputs    []core.Vector
	Golden     []core.Vector
	Mismatches []Mismatch

	// Err is set when the run did not finish, for example because it hit
	// the cycle limit.
	Err error
}

// NewReport compares outputs against golden.
func NewReport(
	outputs, golden []core.Vector,
	cycles int,
	elapsed time.Duration,
) *Report {
	return &Report{
		RunID:      xid.New(),
		Cycles:     cycles,
		Elapsed:    elapsed,
		Outputs:    outputs,
		Golden:     golden,
		Mismatches: Compare(outputs, golden),
	}
}

// Passed returns true if the run finished and every output matched.
func (r *Report) Passed() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// WriteReport writes a human readable summary, with a table of the
// mismatching vectors if there are any.
func (r *Report) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "NPU SIMULATION REPORT (run %s)\n", r.RunID)
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Outputs: %d collected, %d expected\n", len(r.Outputs), len(r.Golden))
	fmt.Fprintf(w, "Cycles:  %d\n", r.Cycles)
	fmt.Fprintf(w, "Time:    %s\n", r.Elapsed)

	if r.Err != nil {
		fmt.Fprintf(w, "Error:   %v\n", r.Err)
	}

	if len(r.Mismatches) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle(fmt.Sprintf("%d mismatching vectors", len(r.Mismatches)))
		t.AppendHeader(table.Row{"Index", "NPU", "REF"})

		for _, m := range r.Mismatches {
			t.AppendRow(table.Row{m.Index, vectorCell(m.Got), vectorCell(m.Want)})
		}

		t.Render()
	}

	if r.Passed() {
		fmt.Fprintln(w, "PASS")
	} else {
		fmt.Fprintln(w, "FAILED")
	}
}

func vectorCell(v core.Vector) string {
	if v == nil {
		return "missing"
	}

	return v.String()
}

// WriteSimDone writes the result artifact: PASS, the cycle count and the
// wall time in seconds, or FAILED and the wall time.
func (r *Report) WriteSimDone(w io.Writer) error {
	seconds := fmt.Sprintf("%.6f", r.Elapsed.Seconds())

	var err error
	if r.Passed() {
		_, err = fmt.Fprintf(w, "PASS\n%d\n%s\n", r.Cycles, seconds)
	} else {
		_, err = fmt.Fprintf(w, "FAILED\n%s\n", seconds)
	}

	return err
}

// SaveSimDone writes the result artifact to path.
func (r *Report) SaveSimDone(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}

	if err := r.WriteSimDone(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}
