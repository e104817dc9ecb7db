package mvu

import "github.com/sarchlab/npusim/core"

// AccumControl tells the accumulator what to do with the next DPE result.
type AccumControl struct {
	// Final means this result completes the running sum, which is then
	// emitted and cleared.
	Final bool

	// Size is the number of running sums in use by the current group.
	Size int
}

// An Accumulator keeps running sums of DPE results, one per row block of the
// current group.
type Accumulator struct {
	name string

	In     *core.Input[Triple]
	Ctrl   *core.Input[AccumControl]
	Output *core.Output[Triple]

	sums []Triple
	idx  int
}

// NewAccumulator creates an accumulator with the given number of running
// sums.
func NewAccumulator(name string, slots int) *Accumulator {
	return &Accumulator{
		name:   name,
		In:     core.NewInput[Triple](name + ".In"),
		Ctrl:   core.NewInput[AccumControl](name + ".Ctrl"),
		Output: core.NewOutput[Triple](name + ".Output"),
		sums:   make([]Triple, slots),
	}
}

// Name returns the name of the accumulator.
func (a *Accumulator) Name() string {
	return a.name
}

// Tick adds one DPE result into the current running sum.
func (a *Accumulator) Tick(now core.Cycle) {
	if a.In.IsEmpty() || a.Ctrl.IsEmpty() {
		return
	}

	ctrl := a.Ctrl.Peek()
	if ctrl.Final && a.Output.IsFull() {
		return
	}

	a.Ctrl.Read()
	in := a.In.Read()

	sum := &a.sums[a.idx]
	for b := range sum {
		sum[b] += in[b]
	}

	if ctrl.Final {
		a.Output.Write(*sum)

		core.Trace("Accumulator",
			"Behavior", "Produced",
			"Component", a.name,
			"Cycle", now,
			"Slot", a.idx,
			"Result", *sum,
		)

		*sum = Triple{}
	}

	a.idx++
	if a.idx >= ctrl.Size {
		a.idx = 0
	}
}
