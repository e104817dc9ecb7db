// Package mvu implements the matrix-vector unit: a grid of tiles, each made
// of dot-product engines with their own matrix register files, and the
// reduction across tiles.
package mvu

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
)

// A Triple holds one value for each of the three batch vectors.
type Triple [3]int32

// Control is the per-cycle control word of a DPE.
type Control struct {
	// RegSel picks one of the two operand buffers.
	RegSel int

	// VRFEn means a vector arrives on Seq along with this word and is loaded
	// into buffer slot Slot.
	VRFEn bool
	Slot  int

	// AccumSize is the number of row blocks in the current group. Groups
	// smaller than three only load that many vectors. The results for the
	// batch vectors that were not loaded are zero, never left over from an
	// earlier group.
	AccumSize int
}

// A loadGroup holds the batch vectors loaded by one slot-0 control word and
// the slots that follow it. Loading slot 0 again starts a new group, so
// operand sets still in flight keep reading the group they were accepted
// with.
type loadGroup struct {
	vecs   [3]core.Vector
	loaded int
	need   int
}

func (g *loadGroup) ready() bool {
	return g.loaded >= g.need
}

type operandSet struct {
	row   core.Vector
	sel   int
	group *loadGroup
}

// A DPE computes the dot product of one matrix row against the three batch
// vectors held in its operand buffer.
type DPE struct {
	name string

	Broadcast *core.Input[core.Vector]
	Seq       *core.Input[core.Vector]
	Ctrl      *core.Input[Control]
	Result    *core.Output[Triple]

	bufs    [2]*loadGroup
	pending *core.Channel[operandSet]
	results *core.Channel[Triple]
}

// NewDPE creates a DPE with latencies derived from the architecture.
func NewDPE(name string, arch config.Arch) *DPE {
	delay := arch.OperandDelay()

	return &DPE{
		name:      name,
		bufs:      [2]*loadGroup{{}, {}},
		Broadcast: core.NewInput[core.Vector](name + ".Broadcast"),
		Seq:       core.NewInput[core.Vector](name + ".Seq"),
		Ctrl:      core.NewInput[Control](name + ".Ctrl"),
		Result:    core.NewOutput[Triple](name + ".Result"),
		pending: core.NewChannel[operandSet](
			name+".Pending", delay+arch.AccumSlots(), delay),
		results: core.NewPipe[Triple](name+".Results", arch.DPEResultLatency()),
	}
}

// Name returns the name of the DPE.
func (d *DPE) Name() string {
	return d.name
}

// Links returns the channels inside the DPE.
func (d *DPE) Links() core.Links {
	return core.Links{d.pending, d.results}
}

// Idle returns true if the DPE holds no operand or result.
func (d *DPE) Idle() bool {
	return d.Links().Drained()
}

// Tick forwards a finished result, computes a ready operand set, and then
// accepts a new one.
func (d *DPE) Tick(now core.Cycle) {
	d.forward()
	d.compute(now)
	d.accept()

	d.Links().Clock()
}

func (d *DPE) forward() {
	if d.results.IsEmpty() || d.Result.IsFull() {
		return
	}

	d.Result.Write(d.results.Read())
}

func (d *DPE) compute(now core.Cycle) {
	if d.pending.IsEmpty() || d.results.IsFull() {
		return
	}

	set := d.pending.Peek()
	if !set.group.ready() {
		return
	}

	d.pending.Read()

	var t Triple
	for b := 0; b < set.group.loaded; b++ {
		t[b] = core.Dot(set.row, set.group.vecs[b])
	}

	d.results.Write(t)

	core.Trace("DPE",
		"Behavior", "Compute",
		"Component", d.name,
		"Cycle", now,
		"RegSel", set.sel,
		"Result", t,
	)
}

func (d *DPE) accept() {
	if d.Ctrl.IsEmpty() || d.Broadcast.IsEmpty() || d.pending.IsFull() {
		return
	}

	ctrl := d.Ctrl.Peek()
	if ctrl.VRFEn && d.Seq.IsEmpty() {
		return
	}

	if ctrl.RegSel < 0 || ctrl.RegSel > 1 {
		panic(fmt.Sprintf("%s: register select %d out of range", d.name, ctrl.RegSel))
	}

	if ctrl.VRFEn && (ctrl.Slot < 0 || ctrl.Slot > 2) {
		panic(fmt.Sprintf("%s: slot %d out of range", d.name, ctrl.Slot))
	}

	d.Ctrl.Read()

	if ctrl.VRFEn && ctrl.Slot == 0 {
		d.bufs[ctrl.RegSel] = &loadGroup{need: min(3, ctrl.AccumSize)}
	}

	group := d.bufs[ctrl.RegSel]
	if ctrl.VRFEn {
		group.vecs[ctrl.Slot] = d.Seq.Read()
		group.loaded++
	}

	d.pending.Write(operandSet{
		row:   d.Broadcast.Read(),
		sel:   ctrl.RegSel,
		group: group,
	})
}
